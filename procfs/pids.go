package procfs

import (
	"os"
	"strconv"
)

// ListPIDs enumerates every numeric directory entry directly under root,
// i.e. every PID currently visible in the process-information
// filesystem.
func ListPIDs(root string) ([]int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	pids := make([]int, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}
