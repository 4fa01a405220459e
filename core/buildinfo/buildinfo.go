// Package buildinfo carries version metadata injected with -ldflags:
//
//	-X 'github.com/m3rciful/estatebot/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/m3rciful/estatebot/core/buildinfo.Commit=abcdef0'
package buildinfo

var (
	Version = "dev"
	Commit  = "local"
)
