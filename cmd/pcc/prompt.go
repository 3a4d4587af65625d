package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

type lineResult struct {
	line string
	err  error
}

// readLine reads one line from in. A reader that never returns leaves the
// read running in the background; the caller gets ctx's error as soon as
// ctx is done.
func readLine(ctx context.Context, in io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	result := make(chan lineResult, 1)
	go func() {
		line, err := readUntilNewline(in)
		result <- lineResult{line: line, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-result:
		if r.err != nil && !errors.Is(r.err, io.EOF) {
			return "", fmt.Errorf("read answer: %w", r.err)
		}
		return strings.TrimSpace(r.line), nil
	}
}

// readYesNo reads a y/n answer. An empty answer takes fallback; anything
// other than y or yes is a no.
func readYesNo(ctx context.Context, in io.Reader, fallback bool) (bool, error) {
	line, err := readLine(ctx, in)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "":
		return fallback, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// readUntilNewline reads a byte at a time so that consecutive prompts on
// the same reader each see their own line.
func readUntilNewline(in io.Reader) (string, error) {
	var b strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				return b.String(), nil
			}
			b.WriteByte(buf[0])
		}
		if err != nil {
			return b.String(), err
		}
	}
}
