package frame

import (
	"fmt"
	"strconv"
	"strings"
)

// BaseEnvironmentInputs carries the Host Facts and config values the
// base environment frame is composed from, before the RunFrame's own
// environment map is overlaid on top.
type BaseEnvironmentInputs struct {
	PATH           string
	Timezone       string
	LogName        string
	Home           string
	GPUMemoryBytes int64
}

// BuildEnvironment composes the environment frame a spawned child
// inherits: a base derived from host facts and config, overridden by the
// RunFrame's own environment map, with one special-case rule that
// widens CUE_THREADS to match CPU_LIST when the caller under-requested
// threads for the cores it reserved.
func BuildEnvironment(req RunFrame, base BaseEnvironmentInputs) []string {
	env := map[string]string{
		"PATH":            base.PATH,
		"TZ":              base.Timezone,
		"USER":            base.LogName,
		"LOGNAME":         base.LogName,
		"MAIL":            "/var/mail/" + base.LogName,
		"HOME":            base.Home,
		"TERM":            "unknown",
		"show":            req.Show,
		"shot":            req.Shot,
		"jobid":           req.JobID,
		"jobhost":         "",
		"frame":           req.FrameName,
		"zframe":          req.FrameName,
		"logfile":         req.LogFile,
		"maxframetime":    "0",
		"minspace":        "200",
		"CUE3":            "True",
		"CUE_GPU_MEMORY":  strconv.FormatInt(base.GPUMemoryBytes, 10),
		"SP_NOMYCSHRC":    "1",
	}

	for k, v := range req.Environment {
		env[k] = v
	}

	if cpuList, ok := req.Attributes["CPU_LIST"]; ok {
		if threads, ok := env["CUE_THREADS"]; ok {
			want := len(strings.Split(cpuList, ","))
			if existing, err := strconv.Atoi(threads); err == nil && existing > want {
				want = existing
			}
			env["CUE_THREADS"] = strconv.Itoa(want)
			env["CUE_HT"] = "True"
		}
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}
