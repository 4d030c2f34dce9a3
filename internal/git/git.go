package git

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ChangedFile lists the lines of the new version of a file touched by a diff.
// Paths are relative to the repository root.
type ChangedFile struct {
	Path         string
	ChangedLines []int
}

// @@ -oldStart,oldLen +newStart,newLen @@
var hunkHeader = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

// GetChangedFiles diffs the working tree of dir against baseRef.
func GetChangedFiles(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "-U0", "--no-color", baseRef)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, errors.Errorf("git diff %s failed: %s", baseRef, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, errors.Wrapf(err, "git diff %s failed", baseRef)
	}

	return parseDiff(output)
}

func parseDiff(output []byte) ([]ChangedFile, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var changes []ChangedFile
	var current *ChangedFile
	flush := func() {
		if current != nil {
			changes = append(changes, *current)
			current = nil
		}
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "diff --git "):
			flush()
			parts := strings.Fields(line)
			if len(parts) >= 4 {
				current = &ChangedFile{Path: strings.TrimPrefix(parts[3], "b/")}
			}
		case strings.HasPrefix(line, "+++ "):
			// A deleted file has no new version to point at.
			if current != nil && strings.TrimSpace(strings.TrimPrefix(line, "+++ ")) == "/dev/null" {
				current = nil
			}
		case strings.HasPrefix(line, "@@") && current != nil:
			m := hunkHeader.FindStringSubmatch(line)
			if m == nil {
				return nil, errors.Errorf("bad hunk header %q", line)
			}
			start, _ := strconv.Atoi(m[1])
			count := 1
			if m[2] != "" {
				count, _ = strconv.Atoi(m[2])
			}
			if count == 0 {
				// Pure deletion after line start: the surrounding definition changed.
				current.ChangedLines = append(current.ChangedLines, max(start, 1))
				continue
			}
			for i := 0; i < count; i++ {
				current.ChangedLines = append(current.ChangedLines, start+i)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read diff")
	}
	flush()

	return changes, nil
}
