// Package glimpse opens a native window without a client api, so a webgpu
// surface can be created for it.
package glimpse

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/profile"
)

func init() {
	// glfw must be driven from the main thread
	runtime.LockOSThread()
}

type WindowOptions struct {
	Width, Height int
	Title         string

	// write a cpu profile into ProfilePath while the window is open
	ProfilePath string
}

type Window struct {
	win  *glfw.Window
	prof interface{ Stop() }
}

func NewWindow(opts WindowOptions) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	window, err := glfw.CreateWindow(max(1, opts.Width), max(1, opts.Height), opts.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}

	w := &Window{win: window}

	if opts.ProfilePath != "" {
		w.prof = profile.Start(profile.CPUProfile, profile.ProfilePath(opts.ProfilePath), profile.Quiet)
	}

	window.SetKeyCallback(func(win *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			slog.Debug("Escape pressed, closing window")
			win.SetShouldClose(true)
		}
	})

	return w, nil
}

func (w *Window) ShouldClose() bool {
	return w.win.ShouldClose()
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
}

func (w *Window) Size() (uint32, uint32) {
	width, height := w.win.GetSize()
	return uint32(width), uint32(height)
}

func (w *Window) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w.win)
}

func (w *Window) Terminate() {
	if w.prof != nil {
		w.prof.Stop()
	}

	w.win.Destroy()
	glfw.Terminate()
}
