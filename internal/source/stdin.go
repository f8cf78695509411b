// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package source

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Reader reads one sample vector per line
type Reader struct {
	r   io.Reader
	log logrus.FieldLogger
}

// NewStdin reads sample vectors from standard input
func NewStdin(log logrus.FieldLogger) *Reader {
	return NewReader(os.Stdin, log)
}

// NewReader reads sample vectors from r
func NewReader(r io.Reader, log logrus.FieldLogger) *Reader {
	return &Reader{r: r, log: log}
}

// Run implements Source. It returns nil at end of input.
func (s *Reader) Run(ctx context.Context, sink Sink) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			values, err := ParseValues(line)
			if err != nil {
				s.log.WithError(err).Warn("Ignoring input line")
				continue
			}
			sink(values)
		}
	}
}
