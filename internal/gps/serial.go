// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"sync"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
)

// SerialConfig selects the NMEA receiver.
// NOTE: PortName depends on the board: /dev/serial0, /dev/ttyAMA0, /dev/ttyUSB0, etc.
type SerialConfig struct {
	Port     string
	BaudRate int
}

// SerialProvider reads NMEA from a serial GPS receiver. "Authorization" on
// a serial device means the port can be opened by this process.
type SerialProvider struct {
	cfg  SerialConfig
	open func(serial.OpenOptions) (io.ReadWriteCloser, error)

	mu      sync.Mutex
	nextID  WatchID
	watches map[WatchID]context.CancelFunc
	wg      sync.WaitGroup
}

func NewSerialProvider(cfg SerialConfig) *SerialProvider {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600
	}
	return &SerialProvider{
		cfg:     cfg,
		open:    serial.Open,
		watches: make(map[WatchID]context.CancelFunc),
	}
}

func (p *SerialProvider) options() serial.OpenOptions {
	return serial.OpenOptions{
		PortName:              p.cfg.Port,
		BaudRate:              uint(p.cfg.BaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
}

func (p *SerialProvider) RequestAuthorization(ctx context.Context) (bool, error) {
	port, err := p.open(p.options())
	if err != nil {
		if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) {
			log.Printf("gps serial: %s not accessible: %v", p.cfg.Port, err)
			return false, nil
		}
		return false, fmt.Errorf("open %s: %w", p.cfg.Port, err)
	}
	_ = port.Close()
	return true, nil
}

func (p *SerialProvider) WatchPosition(onPosition func(Sample), onError func(*ErrorInfo), opts WatchOptions) (WatchID, error) {
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.watches[id] = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.watch(ctx, onPosition, onError, opts)
	}()
	return id, nil
}

func (p *SerialProvider) ClearWatch(id WatchID) {
	p.mu.Lock()
	cancel, ok := p.watches[id]
	delete(p.watches, id)
	p.mu.Unlock()
	if ok {
		cancel()
	}
}

// Close cancels every watch and waits for the readers to exit.
func (p *SerialProvider) Close() {
	p.mu.Lock()
	for id, cancel := range p.watches {
		cancel()
		delete(p.watches, id)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// watch keeps a port open for as long as ctx lives, reopening it with
// backoff after read failures. Errors are reported but never end the watch.
func (p *SerialProvider) watch(ctx context.Context, onPosition func(Sample), onError func(*ErrorInfo), opts WatchOptions) {
	filter := NewFilter(opts)
	emit := func(s Sample) {
		if filter.Accept(s, time.Now()) {
			onPosition(s)
		}
	}

	backoff := 250 * time.Millisecond
	maxBackoff := 10 * time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		port, err := p.open(p.options())
		if err == nil {
			log.Printf("gps serial: watching %s", describePort(p.cfg))
			backoff = 250 * time.Millisecond
			err = p.readFixes(ctx, port, emit, onError, opts.Timeout)
			_ = port.Close()
			if ctx.Err() != nil {
				return
			}
			err = fmt.Errorf("read stopped: %w", err)
		} else {
			err = fmt.Errorf("open %s: %w", p.cfg.Port, err)
		}
		onError(Unavailable("gps serial: " + err.Error()))

		t := backoff
		if t > maxBackoff {
			t = maxBackoff
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(t):
		}
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

// readFixes pumps lines from r until ctx ends or the reader fails. When
// timeout is positive, every period without a valid fix is reported as a
// timeout and reading continues.
func (p *SerialProvider) readFixes(ctx context.Context, r io.Reader, emit func(Sample), onError func(*ErrorInfo), timeout time.Duration) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				errc <- err
				return
			}
		}
	}()

	var (
		timer    *time.Timer
		timeoutC <-chan time.Time
	)
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	var st nmeaState
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			return err
		case <-timeoutC:
			onError(Timeout(fmt.Sprintf("gps serial: no fix within %s", timeout)))
			timer.Reset(timeout)
		case line := <-lines:
			s, ok := st.applyLine(line)
			if !ok {
				continue
			}
			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(timeout)
			}
			emit(s)
		}
	}
}

// GetCurrentPosition opens the port and waits for the first valid fix.
func (p *SerialProvider) GetCurrentPosition(ctx context.Context, opts WatchOptions) (Sample, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	port, err := p.open(p.options())
	if err != nil {
		return Sample{}, Unavailable(fmt.Sprintf("gps serial: open %s: %v", p.cfg.Port, err))
	}
	defer port.Close()
	// Unblock the line reader when we give up.
	release := context.AfterFunc(ctx, func() { _ = port.Close() })
	defer release()

	var (
		fix   Sample
		found bool
	)
	err = p.readFixes(ctx, port, func(s Sample) {
		if !found {
			fix, found = s, true
			stop()
		}
	}, func(*ErrorInfo) {}, 0)
	if found {
		return fix, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Sample{}, Timeout(fmt.Sprintf("gps serial: no fix within %s", opts.Timeout))
	}
	if err == nil {
		err = io.EOF
	}
	return Sample{}, Unavailable(fmt.Sprintf("gps serial: %v", err))
}

func describePort(cfg SerialConfig) string {
	return fmt.Sprintf("%s at %d baud", cfg.Port, cfg.BaudRate)
}
