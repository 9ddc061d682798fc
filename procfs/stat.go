// Package procfs reads per-process information out of the kernel's
// process-information filesystem (/proc), covering the subset of
// /proc/<pid>/stat, /proc/<pid>/status, and /proc/<pid>/io fields the
// Proc Sampler rolls up per tick.
package procfs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Stat is the subset of /proc/<pid>/stat fields the sampler rolls up
// into a ProcSample. Field positions follow `man 5 proc`: the process's
// comm may itself contain spaces and parentheses, so it is located by
// the last ")" rather than by naive whitespace splitting.
type Stat struct {
	Pid       int
	Comm      string
	State     byte
	PPid      int
	PGrp      int
	Session   int
	Utime     uint64
	Stime     uint64
	Cutime    int64
	Cstime    int64
	Starttime uint64
	Vsize     uint64
	Rss       int64
}

// ReadStat parses /proc/<pid>/stat under root.
func ReadStat(root string, pid int) (*Stat, error) {
	path := fmt.Sprintf("%s/%d/stat", root, pid)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseStat(pid, string(data))
}

func parseStat(pid int, line string) (*Stat, error) {
	line = strings.TrimRight(line, "\n")

	open := strings.IndexByte(line, '(')
	closeParen := strings.LastIndexByte(line, ')')
	if open < 0 || closeParen < 0 || closeParen < open {
		return nil, fmt.Errorf("procfs: malformed stat line for pid %d", pid)
	}
	comm := line[open+1 : closeParen]

	rest := strings.Fields(line[closeParen+1:])
	// rest[0] is state; session (field 6 in `man proc`, i.e. rest index 3)
	// and onward are the fields we need. Indexes below are 0-based into
	// `rest`, where rest[0] corresponds to overall field 3 (state).
	const minFields = 22 // through vsize/rss, overall fields up to 24
	if len(rest) < minFields {
		return nil, fmt.Errorf("procfs: short stat line for pid %d: %d fields", pid, len(rest))
	}

	atoi := func(i int) int64 {
		v, _ := strconv.ParseInt(rest[i], 10, 64)
		return v
	}
	atou := func(i int) uint64 {
		v, _ := strconv.ParseUint(rest[i], 10, 64)
		return v
	}

	return &Stat{
		Pid:       pid,
		Comm:      comm,
		State:     rest[0][0],
		PPid:      int(atoi(1)),
		PGrp:      int(atoi(2)),
		Session:   int(atoi(3)),
		Utime:     atou(11),
		Stime:     atou(12),
		Cutime:    atoi(13),
		Cstime:    atoi(14),
		Starttime: atou(19),
		Vsize:     atou(20),
		Rss:       atoi(21),
	}, nil
}
