package procfs

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// IO is the subset of /proc/<pid>/io the sampler rolls up into a
// session's ProcSample.
type IO struct {
	ReadCalls  uint64 // syscr
	WriteCalls uint64 // syscw
	ReadBytes  uint64
	WriteBytes uint64
}

// ReadIO parses /proc/<pid>/io under root.
func ReadIO(root string, pid int) (*IO, error) {
	path := fmt.Sprintf("%s/%d/io", root, pid)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	io := &IO{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		v, _ := strconv.ParseUint(value, 10, 64)
		switch key {
		case "syscr":
			io.ReadCalls = v
		case "syscw":
			io.WriteCalls = v
		case "read_bytes":
			io.ReadBytes = v
		case "write_bytes":
			io.WriteBytes = v
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return io, nil
}
