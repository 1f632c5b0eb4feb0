package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/blang/semver/v4"

	"git.home.luguber.info/inful/packhooks/internal/graph"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/logfields"
	"git.home.luguber.info/inful/packhooks/internal/packager"
)

const selectorBump = "bump"

// ValidReleases lists the release types accepted by IncrementVersion.
var ValidReleases = []string{"major", "premajor", "minor", "preminor", "patch", "prepatch", "prerelease"}

type bumpConfig struct {
	Release string `json:"release"`
	PreID   string `json:"preid"`
	InWatch bool   `json:"inWatch"`
}

func bumpJob() hooks.JobMetadata {
	return hooks.JobMetadata{
		Selector:    selectorBump,
		Schema:      schema("bump.json"),
		Description: "Bump the package version (task arg bump=<release> or bump.release)",
		Hooks: hooks.HooksConfig{
			hooks.PackageEmit: {Before: hooks.Handler(bumpVersion)},
		},
	}
}

// bumpVersion runs once, for the primary entry point. The task argument
// takes precedence over the configured release.
func bumpVersion(_ context.Context, tc *hooks.TaskContext) (*graph.Graph, error) {
	if !tc.IsPrimaryEntry() {
		return nil, nil
	}
	var cfg bumpConfig
	if err := tc.DecodeJobArgs(selectorBump, &cfg); err != nil {
		return nil, err
	}
	release := tc.TaskArg("bump")
	if release == "" {
		release = cfg.Release
	}
	if release == "" {
		return nil, nil
	}
	log := tc.Logger()
	if tc.Global().Watch && !cfg.InWatch {
		log.Info("Skipping version bump in watch mode")
		return nil, nil
	}

	pkg, _, err := entryOf(tc)
	if err != nil {
		return nil, err
	}
	current, err := semver.ParseTolerant(pkg.Version)
	if err != nil {
		return nil, fmt.Errorf("bump: package version %q is not semver: %w", pkg.Version, err)
	}
	next, err := IncrementVersion(current, release, cfg.PreID)
	if err != nil {
		return nil, err
	}
	if err := packager.SetManifestVersion(pkg.ManifestPath, next.String()); err != nil {
		return nil, err
	}
	old := pkg.Version
	pkg.Version = next.String()

	log.Info("Version bumped",
		logfields.Package(pkg.Name),
		logfields.Version(pkg.Version),
		"from", old,
		"release", release)
	return nil, nil
}

// IncrementVersion applies a release type the way npm's semver does. preid
// names the prerelease identifier for the pre* releases; it may be empty.
func IncrementVersion(v semver.Version, release, preid string) (semver.Version, error) {
	if !slices.Contains(ValidReleases, release) {
		return v, fmt.Errorf("bump: %q is not a known semver release type", release)
	}
	next := semver.Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch, Pre: slices.Clone(v.Pre)}
	isPre := len(v.Pre) > 0

	switch release {
	case "major":
		if !isPre || v.Minor != 0 || v.Patch != 0 {
			next.Major++
		}
		next.Minor, next.Patch, next.Pre = 0, 0, nil
	case "minor":
		if !isPre || v.Patch != 0 {
			next.Minor++
		}
		next.Patch, next.Pre = 0, nil
	case "patch":
		if !isPre {
			next.Patch++
		}
		next.Pre = nil
	case "premajor":
		next.Major, next.Minor, next.Patch = v.Major+1, 0, 0
		next.Pre = firstPrerelease(preid)
	case "preminor":
		next.Minor, next.Patch = v.Minor+1, 0
		next.Pre = firstPrerelease(preid)
	case "prepatch":
		next.Patch = v.Patch + 1
		next.Pre = firstPrerelease(preid)
	case "prerelease":
		if !isPre {
			next.Patch = v.Patch + 1
			next.Pre = firstPrerelease(preid)
			break
		}
		next.Pre = incrementPrerelease(next.Pre, preid)
	}
	return next, nil
}

func firstPrerelease(preid string) []semver.PRVersion {
	zero := semver.PRVersion{VersionNum: 0, IsNum: true}
	if preid == "" {
		return []semver.PRVersion{zero}
	}
	return []semver.PRVersion{{VersionStr: preid}, zero}
}

// incrementPrerelease bumps the last numeric identifier, appending one when
// none exists. A different preid restarts the prerelease sequence.
func incrementPrerelease(pre []semver.PRVersion, preid string) []semver.PRVersion {
	if preid != "" && (pre[0].IsNum || pre[0].VersionStr != preid) {
		return firstPrerelease(preid)
	}
	for i := len(pre) - 1; i >= 0; i-- {
		if pre[i].IsNum {
			pre[i].VersionNum++
			return pre
		}
	}
	return append(pre, semver.PRVersion{VersionNum: 0, IsNum: true})
}
