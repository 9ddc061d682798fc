package frame

import "testing"

func envMap(env []string) map[string]string {
	m := make(map[string]string)
	for _, kv := range env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				m[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return m
}

func TestBuildEnvironmentAppliesBaseAndOverrides(t *testing.T) {
	req := RunFrame{
		Show:      "myshow",
		Shot:      "sh010",
		FrameName: "0001-layer",
		LogFile:   "/tmp/0001-layer.rqlog",
		Environment: map[string]string{
			"TERM": "xterm",
		},
	}
	base := BaseEnvironmentInputs{PATH: "/usr/bin:/bin", Timezone: "UTC", LogName: "render", Home: "/home/render"}

	m := envMap(BuildEnvironment(req, base))

	if m["PATH"] != "/usr/bin:/bin" {
		t.Fatalf("expected base PATH to survive, got %q", m["PATH"])
	}
	if m["TERM"] != "xterm" {
		t.Fatalf("expected frame environment to override TERM, got %q", m["TERM"])
	}
	if m["show"] != "myshow" || m["shot"] != "sh010" {
		t.Fatalf("expected show/shot to be set from request, got show=%q shot=%q", m["show"], m["shot"])
	}
	if m["CUE3"] != "True" {
		t.Fatalf("expected CUE3=True, got %q", m["CUE3"])
	}
}

func TestBuildEnvironmentRaisesCueThreadsForCPUList(t *testing.T) {
	req := RunFrame{
		Attributes: map[string]string{"CPU_LIST": "0,2,4,6"},
		Environment: map[string]string{
			"CUE_THREADS": "1",
		},
	}
	m := envMap(BuildEnvironment(req, BaseEnvironmentInputs{}))

	if m["CUE_THREADS"] != "4" {
		t.Fatalf("expected CUE_THREADS raised to 4, got %q", m["CUE_THREADS"])
	}
	if m["CUE_HT"] != "True" {
		t.Fatalf("expected CUE_HT=True, got %q", m["CUE_HT"])
	}
}

func TestBuildEnvironmentLeavesCueThreadsAloneWhenAlreadyHigher(t *testing.T) {
	req := RunFrame{
		Attributes:  map[string]string{"CPU_LIST": "0,2"},
		Environment: map[string]string{"CUE_THREADS": "8"},
	}
	m := envMap(BuildEnvironment(req, BaseEnvironmentInputs{}))

	if m["CUE_THREADS"] != "8" {
		t.Fatalf("expected existing CUE_THREADS to win when already larger, got %q", m["CUE_THREADS"])
	}
}

func TestBuildEnvironmentSkipsCueThreadsRuleWhenNotPresent(t *testing.T) {
	req := RunFrame{Attributes: map[string]string{"CPU_LIST": "0,2"}}
	m := envMap(BuildEnvironment(req, BaseEnvironmentInputs{}))

	if _, ok := m["CUE_THREADS"]; ok {
		t.Fatal("expected CUE_THREADS to be absent when the frame never set it")
	}
	if _, ok := m["CUE_HT"]; ok {
		t.Fatal("expected CUE_HT to be absent when CUE_THREADS was never set")
	}
}
