package main

import (
	"log/slog"

	"github.com/BioHazard786/hearth/cmd"
	"github.com/BioHazard786/hearth/internal/logging"
)

func main() {
	logging.Init(slog.LevelError)
	cmd.Execute()
}
