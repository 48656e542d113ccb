// Package main implements the genconfig tool that writes config.default.toml
// from config.ExampleConfig().
//
// It is invoked by go generate via the directive in internal/config/config.go,
// which runs it from internal/config; the default output path therefore
// climbs to the repository root where configdata.go embeds the file.
package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"tools.zach/dev/servercard/internal/config"
)

func main() {
	out := pflag.StringP("out", "o", "../../config.default.toml", "output path")
	pflag.Parse()

	text, err := generate(config.ExampleConfig(), config.ConfigDocs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "genconfig: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, []byte(text), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *out)
}

// generate encodes cfg and annotates it with docs: section banners, a
// comment block before each documented key, commented alternatives after
// it, and commented stubs for documented keys the encoder omitted.
func generate(cfg *config.Config, docs map[string]config.FieldDoc) (string, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	w := &annotator{docs: docs, emitted: map[string]bool{}}
	w.out = append(w.out,
		"# ///////////////////////////////////////////////",
		"# Servercard Configuration",
		"# ///////////////////////////////////////////////",
		"#",
		"# Every key can also be set through the environment variable named in",
		"# its section comment. Environment values win over this file.",
		"",
	)

	for _, line := range strings.Split(raw.String(), "\n") {
		w.line(strings.TrimSpace(line))
	}
	w.flushOmitted()

	return strings.TrimRight(strings.Join(w.out, "\n"), "\n") + "\n", nil
}

type annotator struct {
	docs    map[string]config.FieldDoc
	out     []string
	section []string
	emitted map[string]bool
}

func (w *annotator) line(trimmed string) {
	switch {
	case trimmed == "":
		// The encoder's spacing is replaced by our own.
	case strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "[["):
		w.flushOmitted()
		name := strings.Trim(trimmed, "[] ")
		w.section = parseSectionPath(name)
		w.out = append(w.out, "", fmt.Sprintf("# ///// %s /////", sectionName(name)), "")
		w.comment(w.docs[name].Comment)
		w.out = append(w.out, trimmed)
	case !strings.Contains(trimmed, "=") || strings.HasPrefix(trimmed, "#"):
		w.out = append(w.out, trimmed)
	default:
		key := strings.TrimSpace(strings.SplitN(trimmed, "=", 2)[0])
		path := key
		if len(w.section) > 0 {
			path = strings.Join(w.section, ".") + "." + key
		}
		w.emitted[path] = true
		doc := w.docs[path]
		w.comment(doc.Comment)
		w.out = append(w.out, trimmed)
		for _, alt := range doc.Alternatives {
			w.out = append(w.out, "# "+alt)
		}
	}
}

func (w *annotator) comment(text string) {
	if text == "" {
		return
	}
	for _, cl := range strings.Split(text, "\n") {
		w.out = append(w.out, strings.TrimRight("# "+cl, " "))
	}
}

func (w *annotator) flushOmitted() {
	injectOmitted(&w.out, w.section, w.emitted, w.docs)
}

// injectOmitted appends commented-out entries for documented keys of the
// current section that the encoder skipped (omitempty fields at their zero
// value). Keys are sorted for deterministic output.
func injectOmitted(out *[]string, sectionStack []string, emitted map[string]bool, docs map[string]config.FieldDoc) {
	if len(sectionStack) == 0 {
		return
	}
	prefix := strings.Join(sectionStack, ".") + "."

	var omitted []string
	for path := range docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || emitted[path] {
			continue
		}
		omitted = append(omitted, path)
	}
	sort.Strings(omitted)

	for _, path := range omitted {
		doc := docs[path]
		*out = append(*out, "")
		if doc.Comment != "" {
			for _, cl := range strings.Split(doc.Comment, "\n") {
				*out = append(*out, strings.TrimRight("# "+cl, " "))
			}
		}
		for _, alt := range doc.Alternatives {
			*out = append(*out, "# "+alt)
		}
		emitted[path] = true
	}
}

// parseSectionPath splits a dotted TOML section header into its segments.
func parseSectionPath(section string) []string {
	return strings.Split(section, ".")
}

// sectionName capitalizes the last segment of a section header:
// "refresh" yields "Refresh".
func sectionName(section string) string {
	parts := strings.Split(section, ".")
	last := parts[len(parts)-1]
	if len(last) == 0 {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
