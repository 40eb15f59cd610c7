package tools

import (
	"path/filepath"
	"strings"

	"github.com/scanhive/scanhive/pkg/duration"
	"github.com/scanhive/scanhive/pkg/parse"
)

// ffufWordlist is the default wordlist filename under WordlistDir.
const ffufWordlist = "common.txt"

// Default returns the registry of the nine built-in scanners in
// canonical order: quick reconnaissance first, then deep protocol
// scanners, then targeted security checks.
func Default() *Registry {
	r := NewRegistry()

	r.Register(Descriptor{
		Name:           "nuclei",
		Category:       CategoryQuick,
		Path:           "nuclei",
		DefaultTimeout: duration.ToolShort,
		Parser:         mustParser("nuclei"),
		Build: func(spec BuildSpec) Invocation {
			artifact := filepath.Join(spec.ArtifactDir, "nuclei.jsonl")
			return Invocation{
				Args: []string{
					"-u", spec.Target,
					"-severity", "critical,high,medium",
					"-jsonl",
					"-o", artifact,
				},
				Artifact: artifact,
			}
		},
	})

	r.Register(Descriptor{
		Name:           "nikto",
		Category:       CategoryQuick,
		Path:           "nikto",
		DefaultTimeout: duration.ToolMedium,
		Parser:         mustParser("nikto"),
		Build: func(spec BuildSpec) Invocation {
			artifact := filepath.Join(spec.ArtifactDir, "nikto.html")
			return Invocation{
				Args: []string{
					"-h", spec.Target,
					"-output", artifact,
					"-Format", "html",
				},
				Artifact: artifact,
			}
		},
	})

	r.Register(Descriptor{
		Name:           "zap",
		Category:       CategoryDeep,
		Path:           "zap-baseline.py",
		DefaultTimeout: duration.ToolLong,
		Parser:         mustParser("zap"),
		Build: func(spec BuildSpec) Invocation {
			artifact := filepath.Join(spec.ArtifactDir, "zap.json")
			return Invocation{
				Args: []string{
					"-t", spec.Target,
					"-r", filepath.Join(spec.ArtifactDir, "zap.html"),
					"-J", artifact,
					"-I", // do not fail on warnings
				},
				Artifact: artifact,
			}
		},
	})

	r.Register(Descriptor{
		Name:           "sslyze",
		Category:       CategoryDeep,
		Path:           "sslyze",
		DefaultTimeout: duration.ToolShort,
		Parser:         mustParser("sslyze"),
		Build: func(spec BuildSpec) Invocation {
			artifact := filepath.Join(spec.ArtifactDir, "sslyze.json")
			return Invocation{
				Args: []string{
					"--json_out", artifact,
					hostPort(spec.Target),
				},
				Artifact: artifact,
			}
		},
	})

	r.Register(Descriptor{
		Name:           "testssl",
		Category:       CategoryDeep,
		Path:           "testssl.sh",
		DefaultTimeout: duration.ToolShort,
		Parser:         mustParser("testssl"),
		Build: func(spec BuildSpec) Invocation {
			artifact := filepath.Join(spec.ArtifactDir, "testssl.json")
			return Invocation{
				Args: []string{
					"--jsonfile", artifact,
					hostname(spec.Target),
				},
				Artifact: artifact,
			}
		},
	})

	r.Register(Descriptor{
		Name:           "ffuf",
		Category:       CategorySecurity,
		Path:           "ffuf",
		DefaultTimeout: duration.ToolMedium,
		Parser:         mustParser("ffuf"),
		Build: func(spec BuildSpec) Invocation {
			artifact := filepath.Join(spec.ArtifactDir, "ffuf.json")
			return Invocation{
				Args: []string{
					"-u", strings.TrimSuffix(spec.Target, "/") + "/FUZZ",
					"-w", filepath.Join(spec.WordlistDir, ffufWordlist),
					"-o", artifact,
					"-of", "json",
					"-mc", "200,204,301,302,307,401,403",
				},
				Artifact: artifact,
			}
		},
	})

	r.Register(Descriptor{
		Name:           "sqlmap",
		Category:       CategorySecurity,
		Path:           "sqlmap",
		DefaultTimeout: duration.ToolLong,
		Parser:         mustParser("sqlmap"),
		Build: func(spec BuildSpec) Invocation {
			// sqlmap reports on stdout; --output-dir only keeps its
			// session files out of the working directory.
			return Invocation{
				Args: []string{
					"-u", spec.Target,
					"--batch",
					"--random-agent",
					"--level=1",
					"--risk=1",
					"--flush-session",
					"--output-dir", spec.ArtifactDir,
				},
			}
		},
	})

	r.Register(Descriptor{
		Name:           "xsstrike",
		Category:       CategorySecurity,
		Path:           "xsstrike",
		DefaultTimeout: duration.ToolShort,
		Parser:         mustParser("xsstrike"),
		Build: func(spec BuildSpec) Invocation {
			return Invocation{
				Args: []string{"-u", spec.Target, "--crawl"},
			}
		},
	})

	r.Register(Descriptor{
		Name:           "wapiti",
		Category:       CategorySecurity,
		Path:           "wapiti",
		DefaultTimeout: duration.ToolMedium,
		Parser:         mustParser("wapiti"),
		Build: func(spec BuildSpec) Invocation {
			artifact := filepath.Join(spec.ArtifactDir, "wapiti.json")
			return Invocation{
				Args: []string{
					"-u", spec.Target,
					"-f", "json",
					"-o", artifact,
					"--flush-session",
					"--scope", "url",
				},
				Artifact: artifact,
			}
		},
	})

	return r
}

func mustParser(tool string) parse.Parser {
	p, ok := parse.For(tool)
	if !ok {
		panic("tools: no parser registered for " + tool)
	}
	return p
}

// hostname strips the scheme and path from a target URL, keeping an
// explicit port if one is present.
func hostname(target string) string {
	h := strings.TrimPrefix(target, "https://")
	h = strings.TrimPrefix(h, "http://")
	if i := strings.IndexByte(h, '/'); i >= 0 {
		h = h[:i]
	}
	return h
}

// hostPort is hostname with the TLS default port appended when the
// target names none.
func hostPort(target string) string {
	h := hostname(target)
	if !strings.Contains(h, ":") {
		h += ":443"
	}
	return h
}
