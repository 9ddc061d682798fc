// Package hostfacts detects the static and semi-static facts about the
// host that the control plane reports to the dispatcher and that the
// lock manager consults for NIMBY decisions: desktop-vs-server
// classification, whether an interactive user is logged in, hostname,
// timezone and GPU memory.
//
// Detection reads the same handful of /proc and /etc locations a
// render host would be configured to expose: the init target or
// inittab default runlevel for desktop classification, X display
// sockets and session terminals for login detection, and /proc/stat
// and /proc/meminfo for the numeric facts.
package hostfacts

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Facts is a point-in-time snapshot of the host's static and
// semi-static properties.
type Facts struct {
	Hostname       string
	Timezone       string
	IsDesktop      bool
	GPUMemoryBytes uint64
	BootTime       int64
	SystemHertz    int64
}

// Paths collects the filesystem locations Host Facts detection reads,
// normally populated from config.MachineConfig. Keeping them as an
// explicit struct rather than reading a global config object keeps
// Detector free of any config-package dependency.
type Paths struct {
	PathInitTarget     string
	PathInittab        string
	PathInittabDefault string
	DisplaysPath       string
	ProcRoot           string
}

// Detector computes and caches HostFacts for the process lifetime. The
// desktop classification is detected once and cached, since it depends
// only on static host configuration; everything else that can change
// (user login state, load, free memory) is recomputed on demand.
type Detector struct {
	paths Paths

	once      sync.Once
	isDesktop bool
}

// NewDetector builds a Detector reading from the given paths. Zero-value
// fields in paths fall back to their real-host defaults.
func NewDetector(paths Paths) *Detector {
	if paths.ProcRoot == "" {
		paths.ProcRoot = "/proc"
	}
	return &Detector{paths: paths}
}

// Detect gathers a full Facts snapshot. Static fields (hostname,
// timezone, boot time, clock ticks) are read every call since they are
// cheap; IsDesktop is cached after the first call.
func (d *Detector) Detect() (*Facts, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostfacts: resolve hostname: %w", err)
	}

	bootTime, err := readBootTime(d.paths.ProcRoot)
	if err != nil {
		return nil, fmt.Errorf("hostfacts: read boot time: %w", err)
	}

	d.once.Do(func() {
		d.isDesktop = d.detectIsDesktop()
	})

	return &Facts{
		Hostname:       hostname,
		Timezone:       localTimezoneName(),
		IsDesktop:      d.isDesktop,
		GPUMemoryBytes: detectGPUMemoryBytes(),
		BootTime:       bootTime,
		SystemHertz:    systemHertz(),
	}, nil
}

// IsUserLoggedIn reports whether an interactive user appears to be using
// this host right now: cross-reference X-display lock sockets against
// logged-in sessions, falling back to a scan of known desktop-session
// process names.
func (d *Detector) IsUserLoggedIn() bool {
	displays, err := listXDisplays(d.paths.DisplaysPath)
	if err != nil || len(displays) == 0 {
		return scanForDesktopProcesses(d.paths.ProcRoot)
	}

	sessions, err := listSessionTerminals()
	if err != nil {
		return scanForDesktopProcesses(d.paths.ProcRoot)
	}
	for _, disp := range displays {
		wantTerminal := fmt.Sprintf(":%d", disp)
		for _, term := range sessions {
			if term == wantTerminal {
				return true
			}
		}
	}
	return scanForDesktopProcesses(d.paths.ProcRoot)
}

// detectIsDesktop classifies the host as a desktop when its systemd
// default.target symlink resolves to graphical.target, or, on hosts
// without systemd, when its inittab default line indicates a graphical
// runlevel.
func (d *Detector) detectIsDesktop() bool {
	if target, err := os.Readlink(d.paths.PathInitTarget); err == nil {
		resolved := target
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(filepath.Dir(d.paths.PathInitTarget), target)
		}
		if strings.HasSuffix(resolved, "graphical.target") {
			return true
		}
	}

	f, err := os.Open(d.paths.PathInittab)
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.HasPrefix(sc.Text(), d.paths.PathInittabDefault) {
			return true
		}
	}
	return false
}

var xDisplayRe = regexp.MustCompile(`^X(\d+)$`)

// listXDisplays enumerates X-display lock sockets in dir, matching names
// of the form X<digits>, as the Unix-domain socket directory layout
// exposes them.
func listXDisplays(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var displays []int
	for _, e := range entries {
		m := xDisplayRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(m[1], "%d", &n); err == nil {
			displays = append(displays, n)
		}
	}
	return displays, nil
}

// listSessionTerminals returns the terminal field of every currently
// logged-in session, read via the `who` utility rather than parsing
// utmp directly (utmp's binary layout is glibc-ABI-specific and not
// worth hand-decoding for a best-effort NIMBY signal).
func listSessionTerminals() ([]string, error) {
	out, err := exec.Command("who").Output()
	if err != nil {
		return nil, err
	}
	var terminals []string
	sc := bufio.NewScanner(strings.NewReader(string(out)))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		terminals = append(terminals, fields[1])
	}
	return terminals, nil
}

var desktopProcessNames = []string{"kdesktop", "gnome-session", "startkde", "gnome-shell"}

// scanForDesktopProcesses is the fallback login-detection path: scan
// process names for a known desktop-session process.
func scanForDesktopProcesses(procRoot string) bool {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		comm, err := os.ReadFile(filepath.Join(procRoot, e.Name(), "comm"))
		if err != nil {
			continue
		}
		name := strings.TrimSpace(string(comm))
		for _, want := range desktopProcessNames {
			if strings.Contains(name, want) {
				return true
			}
		}
	}
	return false
}

// readBootTime reads the btime field out of /proc/stat, the kernel's
// own record of the host's boot time as a Unix epoch second.
func readBootTime(procRoot string) (int64, error) {
	f, err := os.Open(filepath.Join(procRoot, "stat"))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 2 && fields[0] == "btime" {
			var v int64
			if _, err := fmt.Sscanf(fields[1], "%d", &v); err != nil {
				return 0, err
			}
			return v, nil
		}
	}
	return 0, fmt.Errorf("hostfacts: btime not found in /proc/stat")
}

func localTimezoneName() string {
	name, _ := time.Now().Zone()
	return name
}

// systemHertz returns the kernel's clock ticks per second. Go has no
// direct sysconf(_SC_CLK_TCK) binding without cgo; 100 is the value on
// every Linux platform frameagent targets (x86_64, arm64), so it is used
// directly rather than pulling in a cgo dependency for one constant.
func systemHertz() int64 {
	return 100
}

// detectGPUMemoryBytes reads total video memory by summing the
// "mem_info_vram_total" sysfs attribute of every DRM card. Cards that do not expose the
// attribute (most do not, outside of amdgpu) are skipped rather than
// treated as an error, since GPU memory reporting is best-effort.
func detectGPUMemoryBytes() uint64 {
	matches, err := filepath.Glob("/sys/class/drm/card*/device/mem_info_vram_total")
	if err != nil {
		return 0
	}
	var total uint64
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		var v uint64
		if _, err := fmt.Sscanf(strings.TrimSpace(string(data)), "%d", &v); err == nil {
			total += v
		}
	}
	return total
}

// LoadAverage reads the 1-minute load average from /proc/loadavg, for
// inclusion in HostReport alongside the rest of the host's vitals.
func (d *Detector) LoadAverage() float64 {
	data, err := os.ReadFile(filepath.Join(d.paths.ProcRoot, "loadavg"))
	if err != nil {
		return 0
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0
	}
	v, _ := strconv.ParseFloat(fields[0], 64)
	return v
}

// FreeMemoryBytes reads MemAvailable out of /proc/meminfo, falling back
// to MemFree when the kernel is too old to expose MemAvailable.
func (d *Detector) FreeMemoryBytes() int64 {
	f, err := os.Open(filepath.Join(d.paths.ProcRoot, "meminfo"))
	if err != nil {
		return 0
	}
	defer f.Close()

	var memFree, memAvailable int64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch strings.TrimSuffix(fields[0], ":") {
		case "MemAvailable":
			memAvailable = kb * 1024
		case "MemFree":
			memFree = kb * 1024
		}
	}
	if memAvailable > 0 {
		return memAvailable
	}
	return memFree
}

// Arch returns the host's machine architecture (e.g. x86_64), reported
// to the dispatcher alongside the rest of HostReport.
func Arch() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "UNKNOWN"
	}
	return unix.ByteSliceToString(uts.Machine[:])
}
