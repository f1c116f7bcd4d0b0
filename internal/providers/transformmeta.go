package providers

import "github.com/cc-switch/proxy/internal/config"

// NeedsTransformFromMeta reports the meta-driven half of the
// NeedsTransform decision shared by every adapter: enabled and the
// formats actually differ. Per SPEC_FULL.md §3, source==target must
// skip even when enabled=true.
func NeedsTransformFromMeta(p config.Provider) bool {
	ft := p.Meta.FormatTransform
	if ft == nil || !ft.Enabled {
		return false
	}

	return ft.SourceFormat != ft.TargetFormat
}
