// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"coolrig/internal/config"
	"coolrig/internal/controller"
	"coolrig/internal/sensors"
	"coolrig/pkg/appctx"
	"coolrig/pkg/logger"
	"coolrig/pkg/serialport"
	"coolrig/pkg/service"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
)

type options struct {
	Config  string `short:"c" long:"config" description:"path to the YAML config" value-name:"FILE"`
	Device  string `long:"device" description:"serial device, overrides serial.device" value-name:"PATH"`
	LogFile string `long:"log" description:"also append log lines to this file" value-name:"FILE"`
	Debug   bool   `short:"d" long:"debug" description:"debug logging and a report line every cycle"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return 0
		}
		return 2
	}

	rootdir := os.Getenv("PROJECT_ROOT")
	if rootdir == "" {
		rootdir = "."
	}
	if opts.Config == "" {
		opts.Config = filepath.Join(rootdir, "var/config/coolrig.yml")
	}

	if err := logger.Init(opts.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "log file: %v\n", err)
		return 1
	}
	defer logger.Close()
	if opts.Debug {
		logger.EnableDebug(true)
	}
	log := logger.New("Main")

	conf, err := config.LoadFile(opts.Config)
	if err != nil {
		log.Error("config %s: %v", opts.Config, err)
		return 1
	}
	if opts.Device != "" {
		conf.Serial.Device = opts.Device
	}
	if opts.Debug {
		conf.Report.Debug = true
	}

	temps, closeSensors, err := sensors.FromConfig(conf)
	if err != nil {
		log.Error("sensors: %v", err)
		return 1
	}
	defer closeSensors()

	port, err := serialport.Open(serialport.Config{
		Device:            conf.Serial.Device,
		BaudRate:          conf.Serial.BaudRate,
		Timeout:           conf.Serial.Timeout,
		ReconnectAttempts: conf.Serial.ReconnectAttempts,
		ReconnectBackoff:  conf.Serial.ReconnectBackoff,
	})
	if err != nil {
		log.Error("serial device: %v", err)
		return 1
	}
	defer port.Close()

	ctx, ctxCancel := appctx.New()
	defer ctxCancel()

	ctrl := controller.New(conf, temps, port)

	// waits for the control loop to stop
	return <-service.Start(ctx, ctxCancel, []service.Runnable{ctrl})
}
