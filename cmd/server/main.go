package main

import (
	"github.com/nghyane/inkledger/internal/buildinfo"
	"github.com/nghyane/inkledger/internal/cli"
	"github.com/nghyane/inkledger/internal/logging"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	cli.Execute()
}
