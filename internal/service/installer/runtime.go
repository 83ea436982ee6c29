package installer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var errInvalidVersionOutput = errors.New("invalid interpreter version output")

// detectRuntime runs `<interpreter> --version` and returns the reported version.
// Python 2 prints the version on stderr, so both streams are read.
func detectRuntime(ctx context.Context, interpreter string, timeout time.Duration) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := exec.CommandContext(cmdCtx, interpreter, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("run %s --version: %w", interpreter, err)
	}

	return parseRuntimeVersion(string(output))
}

// parseRuntimeVersion extracts "2.7.18" from "Python 2.7.18".
func parseRuntimeVersion(output string) (string, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "Python" {
			continue
		}

		end := 0
		for end < len(fields[1]) && (fields[1][end] == '.' || (fields[1][end] >= '0' && fields[1][end] <= '9')) {
			end++
		}

		if version := strings.Trim(fields[1][:end], "."); version != "" {
			return version, nil
		}
	}

	return "", fmt.Errorf("%w: %q", errInvalidVersionOutput, strings.TrimSpace(output))
}
