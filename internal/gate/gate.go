// Package gate classifies a set of changed file paths for the workflow
// check: documentation-only changes pass unconditionally, while code
// changes additionally require a spec update and a complete artifact set
// in a single change directory. Every rule is a pure predicate so the
// classification is independently testable.
package gate

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/codex-sdd/internal/errors"
)

// Path prefixes and artifact names recognized by the check.
const (
	DocsPrefix    = "docs/"
	SpecsPrefix   = "docs/sdd/specs/"
	ChangesPrefix = "docs/sdd/changes/"
	SpecExt       = ".md"

	ArtifactDecision = "90_decision.md"
	ArtifactTasks    = "40_tasks.md"
	ArtifactTestPlan = "50_test_plan.md"
)

// codePrefixes are the source and test locations that classify a change
// as a code change.
var codePrefixes = []string{"src/", "tests/"}

// buildManifests are exact paths that classify a change as a code change.
var buildManifests = []string{"Cargo.toml", "Cargo.lock"}

// IsDocsPath reports whether a path lies under the documentation root.
func IsDocsPath(path string) bool {
	return strings.HasPrefix(path, DocsPrefix)
}

// IsCodePath reports whether a path lies under source, test, or
// build-manifest locations.
func IsCodePath(path string) bool {
	for _, prefix := range codePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	for _, manifest := range buildManifests {
		if path == manifest {
			return true
		}
	}
	return false
}

// IsSpecPath reports whether a path is a recognized specification
// document.
func IsSpecPath(path string) bool {
	return strings.HasPrefix(path, SpecsPrefix) && strings.HasSuffix(path, SpecExt)
}

// artifactSet tracks which required terminal artifacts a single change
// directory has touched.
type artifactSet struct {
	decision bool
	tasks    bool
	testPlan bool
}

func (a artifactSet) complete() bool {
	return a.decision && a.tasks && a.testPlan
}

// HasCompleteArtifacts reports whether some single change directory had
// all three terminal artifacts touched. Paths are grouped by the segment
// following the changes prefix; partial artifacts spread across different
// groups do not satisfy the check.
func HasCompleteArtifacts(changed []string) bool {
	byChange := make(map[string]*artifactSet)
	for _, path := range changed {
		rest, ok := strings.CutPrefix(path, ChangesPrefix)
		if !ok {
			continue
		}
		group, _, _ := strings.Cut(rest, "/")
		if group == "" {
			continue
		}
		set := byChange[group]
		if set == nil {
			set = &artifactSet{}
			byChange[group] = set
		}
		switch {
		case strings.HasSuffix(path, "/"+ArtifactDecision):
			set.decision = true
		case strings.HasSuffix(path, "/"+ArtifactTasks):
			set.tasks = true
		case strings.HasSuffix(path, "/"+ArtifactTestPlan):
			set.testPlan = true
		}
	}
	for _, set := range byChange {
		if set.complete() {
			return true
		}
	}
	return false
}

// Check classifies changed paths for a single workflow check.
// An empty change set passes. A docs-only change set passes
// unconditionally. A change set touching code requires both a spec update
// and a complete artifact set; the returned error names the unmet
// requirement.
func Check(changed []string) error {
	if len(changed) == 0 {
		return nil
	}

	docsOnly := true
	for _, path := range changed {
		if !IsDocsPath(path) {
			docsOnly = false
			break
		}
	}
	if docsOnly {
		return nil
	}

	codeChanged := false
	for _, path := range changed {
		if IsCodePath(path) {
			codeChanged = true
			break
		}
	}
	if !codeChanged {
		return nil
	}

	specUpdated := false
	for _, path := range changed {
		if IsSpecPath(path) {
			specUpdated = true
			break
		}
	}
	if !specUpdated {
		return errors.NewGateError(
			fmt.Sprintf("spec update required: code changes need a %s<spec>%s update", SpecsPrefix, SpecExt),
			errors.ErrSpecUpdateRequired)
	}

	if !HasCompleteArtifacts(changed) {
		return errors.NewGateError(
			fmt.Sprintf("artifacts required: code changes need %s<id>_<name>/{%s, %s, %s}",
				ChangesPrefix, ArtifactDecision, ArtifactTasks, ArtifactTestPlan),
			errors.ErrArtifactsRequired)
	}

	return nil
}
