package globals

import "github.com/hashicorp/go-hclog"

var AppLogger = hclog.New(&hclog.LoggerOptions{
	Name:  "eternal-paradise",
	Level: hclog.LevelFromString("DEBUG"),
})
