// Package layer anchors the launcher window with gtk-layer-shell on Wayland
// compositors that support it.
package layer

/*
#cgo pkg-config: gtk-layer-shell-0
#include <stdlib.h>
#include <gtk-layer-shell.h>
*/
import "C"
import "unsafe"

// Layer represents a layer shell layer
type Layer int

const (
	LayerBackground Layer = 0
	LayerBottom     Layer = 1
	LayerTop        Layer = 2
	LayerOverlay    Layer = 3
)

// Edge represents a screen edge
type Edge int

const (
	EdgeLeft   Edge = 0
	EdgeRight  Edge = 1
	EdgeTop    Edge = 2
	EdgeBottom Edge = 3
)

// KeyboardMode represents keyboard focus mode
type KeyboardMode int

const (
	KeyboardModeNone      KeyboardMode = 0
	KeyboardModeExclusive KeyboardMode = 1
	KeyboardModeOnDemand  KeyboardMode = 2
)

// Options describes where the launcher surface sits.
type Options struct {
	Namespace string
	// AnchorTop pins the window to the top edge; otherwise it is centered.
	AnchorTop bool
	MarginTop int
}

// Supported reports whether the running compositor speaks the layer shell
// protocol.
func Supported() bool {
	return C.gtk_layer_is_supported() != 0
}

// Configure turns window into an overlay surface that grabs the keyboard.
// It must run before the window is mapped.
func Configure(window unsafe.Pointer, opts Options) {
	w := (*C.GtkWindow)(window)

	C.gtk_layer_init_for_window(w)
	if opts.Namespace != "" {
		ns := C.CString(opts.Namespace)
		defer C.free(unsafe.Pointer(ns))
		C.gtk_layer_set_namespace(w, ns)
	}
	C.gtk_layer_set_layer(w, C.GtkLayerShellLayer(LayerOverlay))
	C.gtk_layer_set_keyboard_mode(w, C.GtkLayerShellKeyboardMode(KeyboardModeExclusive))
	C.gtk_layer_set_exclusive_zone(w, -1)

	if opts.AnchorTop {
		C.gtk_layer_set_anchor(w, C.GtkLayerShellEdge(EdgeTop), 1)
		C.gtk_layer_set_margin(w, C.GtkLayerShellEdge(EdgeTop), C.int(opts.MarginTop))
	}
}
