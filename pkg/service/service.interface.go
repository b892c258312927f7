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

package service

import (
	"context"
	"coolrig/pkg/logger"
	"runtime/debug"
	"sync"
)

// Runnable is the common interface for all services. Run blocks until ctx
// is cancelled or the service fails; a non-nil error stops every service.
type Runnable interface {
	Run(ctx context.Context) error
}

// Start runs the services and reports the exit code once all of them have
// stopped: 0 on a clean shutdown, 1 if one returned an error, -1 on panic.
func Start(ctx context.Context, ctxCancel context.CancelFunc, services []Runnable) <-chan int {
	wg := &sync.WaitGroup{}

	var mu sync.Mutex
	var exitCode int
	var exitCh = make(chan int, 1)

	setExit := func(code int) {
		mu.Lock()
		if exitCode == 0 {
			exitCode = code
		}
		mu.Unlock()
	}

	log := logger.New("Service")

	for _, s := range services {
		service := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error("%v\n%s", r, debug.Stack())
					setExit(-1)
					ctxCancel()
				}
			}()
			if err := service.Run(ctx); err != nil {
				log.Error("%v", err)
				setExit(1)
				ctxCancel()
			}
		}()
	}

	go func() {
		// wait for for all services to stop
		wg.Wait()
		mu.Lock()
		exitCh <- exitCode
		mu.Unlock()
	}()

	return exitCh
}
