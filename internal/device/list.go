package device

import (
	"fmt"

	"github.com/gen2brain/malgo"
)

// Info describes one audio endpoint.
type Info struct {
	Kind    string // "playback" or "capture"
	Name    string
	ID      string
	Default bool
}

// List enumerates playback and capture devices.
func List() ([]Info, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	var out []Info
	for _, kind := range []struct {
		typ  malgo.DeviceType
		name string
	}{
		{malgo.Playback, "playback"},
		{malgo.Capture, "capture"},
	} {
		devs, err := ctx.Devices(kind.typ)
		if err != nil {
			return nil, fmt.Errorf("enumerate %s devices: %w", kind.name, err)
		}
		for _, d := range devs {
			out = append(out, Info{
				Kind:    kind.name,
				Name:    d.Name(),
				ID:      d.ID.String(),
				Default: d.IsDefault != 0,
			})
		}
	}
	return out, nil
}
