package procfs

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Status is the subset of /proc/<pid>/status the sampler needs: thread
// leadership (to ignore non-leader threads), context switch counters,
// and the CPU affinity mask.
type Status struct {
	Tgid                 int
	Pid                  int
	VoluntaryCtxtSw      uint64
	NonvoluntaryCtxtSw   uint64
	CpusAllowedList      []int
}

// ReadStatus parses /proc/<pid>/status under root. Unlike Stat, Status is
// a string-keyed map in the kernel's own representation; this parses the
// handful of keys the sampler consumes and ignores the rest.
func ReadStatus(root string, pid int) (*Status, error) {
	path := fmt.Sprintf("%s/%d/status", root, pid)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s := &Status{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := line[:idx]
		value := strings.TrimSpace(line[idx+1:])
		switch key {
		case "Tgid":
			s.Tgid = atoiSafe(value)
		case "Pid":
			s.Pid = atoiSafe(value)
		case "voluntary_ctxt_switches":
			s.VoluntaryCtxtSw, _ = strconv.ParseUint(value, 10, 64)
		case "nonvoluntary_ctxt_switches":
			s.NonvoluntaryCtxtSw, _ = strconv.ParseUint(value, 10, 64)
		case "Cpus_allowed_list":
			s.CpusAllowedList = ParseCPUList(value)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func atoiSafe(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

// ParseCPUList expands a comma-separated list of single integers or
// a-b ranges (e.g. "0,2,4-6") into an explicit integer set, matching the
// format of /proc/<pid>/status's Cpus_allowed_list field.
func ParseCPUList(s string) []int {
	if s == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if dash := strings.IndexByte(part, '-'); dash >= 0 {
			lo, errLo := strconv.Atoi(part[:dash])
			hi, errHi := strconv.Atoi(part[dash+1:])
			if errLo != nil || errHi != nil || hi < lo {
				continue
			}
			for v := lo; v <= hi; v++ {
				out = append(out, v)
			}
			continue
		}
		if v, err := strconv.Atoi(part); err == nil {
			out = append(out, v)
		}
	}
	return out
}
