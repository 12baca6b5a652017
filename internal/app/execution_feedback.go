package app

import "strings"

// executionSignals summarizes the build and test evidence found in an agent
// transcript, for the reflect+curate cycle.
type executionSignals struct {
	CompileOK    bool
	TestsPassed  bool
	FailingTests []string
	LintCount    int
}

// classifyExecution scans the transcript and stderr for compile failures,
// failing test names and lint findings. A transcript with no failure marker
// counts as clean.
func classifyExecution(content, stderr string) executionSignals {
	s := executionSignals{CompileOK: true, TestsPassed: true}
	seen := make(map[string]bool)
	for _, line := range strings.Split(content+"\n"+stderr, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "--- FAIL: "):
			name := strings.TrimPrefix(trimmed, "--- FAIL: ")
			if idx := strings.IndexByte(name, ' '); idx >= 0 {
				name = name[:idx]
			}
			if name != "" && !seen[name] {
				seen[name] = true
				s.FailingTests = append(s.FailingTests, name)
			}
			s.TestsPassed = false
		case trimmed == "FAIL" || strings.HasPrefix(trimmed, "FAIL\t"):
			s.TestsPassed = false
		case strings.Contains(trimmed, "build failed"),
			strings.Contains(trimmed, "syntax error"),
			strings.Contains(trimmed, "undefined:"),
			strings.Contains(trimmed, "cannot find package"):
			s.CompileOK = false
			s.TestsPassed = false
		case strings.Contains(trimmed, "warning:"):
			s.LintCount++
		}
	}
	return s
}
