// Package autoload initializes the global logger from LOG_* variables on import.
package autoload

import (
	"github.com/kelseyhightower/envconfig"
	logx "github.com/tanpawarit/Chative-Banking-Assistant/pkg/logger"
)

func init() {
	var cfg logx.Config
	if err := envconfig.Process("LOG", &cfg); err != nil {
		logx.Init()
		return
	}
	logx.Init(cfg)
}
