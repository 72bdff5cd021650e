package results

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/swdee/go-fightdetect/behavior"
	"github.com/swdee/go-fightdetect/classify"
)

// Record is one verdict line of a result log
type Record struct {
	classify.Verdict
	Time time.Duration
}

// File is the parsed content of a result log
type File struct {
	Meta    Meta
	Records []Record
	// Summary is nil when the log was never finalized
	Summary *Summary
}

// ParseFile reads a result log written by Log
func ParseFile(path string) (*File, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, err
	}

	defer f.Close()

	out := &File{}
	scanner := bufio.NewScanner(f)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		if err := out.parseLine(line); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if lineNo == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	return out, nil
}

func (out *File) parseLine(line string) error {

	switch {
	case strings.HasPrefix(line, "# fightdetect "):
		kv, err := fields(strings.TrimPrefix(line, "# fightdetect "))
		if err != nil {
			return err
		}

		out.Meta.RunID = kv["run"]
		out.Meta.Video = kv["video"]

		if s, ok := kv["started"]; ok {
			if out.Meta.Started, err = time.Parse(time.RFC3339, s); err != nil {
				return fmt.Errorf("invalid start time: %w", err)
			}
		}

	case strings.HasPrefix(line, "# summary "):
		kv, err := fields(strings.TrimPrefix(line, "# summary "))
		if err != nil {
			return err
		}

		s, err := parseSummary(kv)
		if err != nil {
			return err
		}

		s.RunID = out.Meta.RunID
		out.Summary = s

	case strings.HasPrefix(line, "#"):
		// comment

	default:
		kv, err := fields(line)
		if err != nil {
			return err
		}

		rec, err := parseRecord(kv)
		if err != nil {
			return err
		}

		out.Records = append(out.Records, rec)
	}

	return nil
}

// fields splits space separated key=value pairs where values may be double
// quoted
func fields(line string) (map[string]string, error) {

	kv := make(map[string]string)
	rest := strings.TrimSpace(line)

	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("expected key=value at %q", rest)
		}

		key := rest[:eq]
		rest = rest[eq+1:]

		var value string

		if strings.HasPrefix(rest, `"`) {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return nil, fmt.Errorf("invalid quoted value for %s: %w", key, err)
			}

			if value, err = strconv.Unquote(quoted); err != nil {
				return nil, fmt.Errorf("invalid quoted value for %s: %w", key, err)
			}

			rest = rest[len(quoted):]
		} else {
			end := strings.IndexByte(rest, ' ')
			if end < 0 {
				end = len(rest)
			}
			value = rest[:end]
			rest = rest[end:]
		}

		kv[key] = value
		rest = strings.TrimLeft(rest, " ")
	}

	return kv, nil
}

func atoi(kv map[string]string, key string) (int, error) {
	v, ok := kv[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	if v == "-" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func atof(kv map[string]string, key string) (float64, error) {
	v, ok := kv[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

// parseTime is the reverse of formatTime
func parseTime(s string) (time.Duration, error) {
	var m, sec, ms int
	if _, err := fmt.Sscanf(s, "%d:%d.%d", &m, &sec, &ms); err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return time.Duration(m)*time.Minute + time.Duration(sec)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

func parseRecord(kv map[string]string) (Record, error) {

	var rec Record
	var err error

	if rec.Frame, err = atoi(kv, "frame"); err != nil {
		return rec, err
	}

	if rec.Time, err = parseTime(kv["time"]); err != nil {
		return rec, err
	}

	switch kv["verdict"] {
	case "fight":
		rec.Label = classify.Fight
	case "normal":
		rec.Label = classify.Normal
	default:
		return rec, fmt.Errorf("unknown verdict %q", kv["verdict"])
	}

	var a, b int
	if _, err := fmt.Sscanf(kv["tracks"], "%d,%d", &a, &b); err != nil {
		return rec, fmt.Errorf("invalid tracks %q: %w", kv["tracks"], err)
	}
	rec.Pair = behavior.NewPairKey(a, b)

	if rec.Confidence, err = atof(kv, "confidence"); err != nil {
		return rec, err
	}

	if rec.Change, err = classify.ParseChange(kv["change"]); err != nil {
		return rec, err
	}

	if rec.Motion, err = atof(kv, "motion"); err != nil {
		return rec, err
	}

	if rec.Distance, err = atof(kv, "distance"); err != nil {
		return rec, err
	}

	if rec.ClosingSpeed, err = atof(kv, "closing"); err != nil {
		return rec, err
	}

	return rec, nil
}

func parseSummary(kv map[string]string) (*Summary, error) {

	s := &Summary{}
	var err error

	if s.Status, err = ParseStatus(kv["status"]); err != nil {
		return nil, err
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"frames", &s.Frames},
		{"tracks", &s.Tracks},
		{"events", &s.FightEvents},
		{"first_fight", &s.FirstFightFrame},
		{"last_fight", &s.LastFightFrame},
		{"detector_failures", &s.DetectorFailures},
	}

	for _, f := range ints {
		if *f.dst, err = atoi(kv, f.key); err != nil {
			return nil, err
		}
	}

	return s, nil
}
