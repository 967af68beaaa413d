package pulse

// alignUp rounds value up to the next multiple of alignment.
func alignUp(value, alignment uint32) uint32 {
	if alignment <= 1 {
		return value
	}

	return (value + alignment - 1) / alignment * alignment
}

// padRows copies tightly packed rows into a buffer with rows of alignedRowBytes.
// If the rows are already aligned, texels is returned as is.
func padRows(texels []byte, rowBytes, height, alignedRowBytes uint32) []byte {
	if rowBytes == alignedRowBytes {
		return texels
	}

	padded := make([]byte, int(alignedRowBytes)*int(height-1)+int(rowBytes))
	for y := range int(height) {
		src := texels[y*int(rowBytes) : (y+1)*int(rowBytes)]
		copy(padded[y*int(alignedRowBytes):], src)
	}

	return padded
}

// stripRows removes the row padding from a buffer with rows of alignedRowBytes.
func stripRows(padded []byte, rowBytes, height, alignedRowBytes uint32) []byte {
	texels := make([]byte, int(rowBytes)*int(height))
	for y := range int(height) {
		offset := y * int(alignedRowBytes)
		copy(texels[y*int(rowBytes):], padded[offset:offset+int(rowBytes)])
	}

	return texels
}
