package transcript

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ErrEmptyTranscript is returned when no utterance could be recovered.
var ErrEmptyTranscript = errors.New("transcript: no utterances recovered")

// ErrNoTranscript is returned by LoadDir when a call directory holds no
// transcript file.
var ErrNoTranscript = errors.New("transcript: no transcript file found")

// Candidates lists the transcript file names tried by LoadDir, in order.
var Candidates = []string{"transcript-2.vtt", "transcript-3.vtt"}

// speakerTagRe matches an inline role tag such as <AGENT> on a cue line.
var speakerTagRe = regexp.MustCompile(`<\s*([A-Za-z_]+)\s*>`)

// roleTags maps upper-cased tag names to speakers. Unrecognised tags are
// treated as absent and resolved by the heuristic.
var roleTags = map[string]Speaker{
	"AGENT":    SpeakerAgent,
	"OPERATOR": SpeakerAgent,
	"CUSTOMER": SpeakerCustomer,
	"CLIENT":   SpeakerCustomer,
}

// LoadDir finds the transcript inside callDir and parses it. It returns the
// path that was used alongside the transcript.
func LoadDir(callDir string) (*Transcript, string, error) {
	for _, name := range Candidates {
		p := filepath.Join(callDir, name)
		if _, err := os.Stat(p); err == nil {
			t, err := ParseFile(p)
			return t, p, err
		}
	}
	return nil, "", fmt.Errorf("%w in %s", ErrNoTranscript, callDir)
}

// ParseFile reads and parses the timed-text file at path.
func ParseFile(path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transcript: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads timed-text content from r. Cues with unparseable timestamps
// are skipped and listed in Transcript.Skipped; ErrEmptyTranscript is
// returned when nothing usable remains.
func Parse(r io.Reader) (*Transcript, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("transcript: scan: %w", err)
	}

	t := segment(lines)
	if len(t.Utterances) == 0 {
		return t, ErrEmptyTranscript
	}
	resolveSpeakers(t.Utterances)
	return t, nil
}

// cueLine holds the timing and role tag parsed from a "-->" line.
type cueLine struct {
	start, end float64
	speaker    Speaker
}

func segment(lines []string) *Transcript {
	t := &Transcript{}
	pendingCue := 0

	i := 0
	for i < len(lines) {
		line := strings.TrimPrefix(strings.TrimSpace(lines[i]), "\ufeff")
		lineNum := i + 1
		i++

		if line == "" || strings.HasPrefix(line, "WEBVTT") {
			continue
		}
		if isDigitOnly(line) {
			pendingCue, _ = strconv.Atoi(line)
			continue
		}
		if !strings.Contains(line, "-->") {
			continue
		}

		cl, err := parseCueLine(line)

		var text []string
		for i < len(lines) {
			next := strings.TrimSpace(lines[i])
			if next == "" || strings.Contains(next, "-->") || isDigitOnly(next) {
				break
			}
			text = append(text, next)
			i++
		}

		cueNum := pendingCue
		pendingCue = 0
		if err != nil {
			t.Skipped = append(t.Skipped, SkippedCue{Line: lineNum, Reason: err.Error()})
			continue
		}
		if len(text) == 0 {
			t.Skipped = append(t.Skipped, SkippedCue{Line: lineNum, Reason: "cue has no text"})
			continue
		}
		t.Utterances = append(t.Utterances, Utterance{
			Index:   len(t.Utterances),
			Cue:     cueNum,
			Speaker: cl.speaker,
			Start:   cl.start,
			End:     cl.end,
			Text:    strings.Join(text, " "),
		})
	}
	return t
}

func parseCueLine(line string) (cueLine, error) {
	var cl cueLine
	if m := speakerTagRe.FindStringSubmatch(line); m != nil {
		cl.speaker = roleTags[strings.ToUpper(m[1])]
	}
	line = speakerTagRe.ReplaceAllString(line, " ")

	startPart, endPart, _ := strings.Cut(line, "-->")
	start, err := ParseTimestamp(firstField(startPart))
	if err != nil {
		return cl, err
	}
	end, err := ParseTimestamp(firstField(endPart))
	if err != nil {
		return cl, err
	}
	if end < start {
		end = start
	}
	cl.start, cl.end = start, end
	return cl, nil
}

// firstField returns the first whitespace-delimited token of s, dropping
// trailing cue settings such as "align:start".
func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func isDigitOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
