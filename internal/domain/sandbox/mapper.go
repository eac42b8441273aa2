// Package sandbox is the Sandbox Capability Mapper (C5): it translates a
// compiled policy's storage access grants into the directory/file
// permission bits and preopen directory list a WASM runtime sandbox needs
// to mount the guest's filesystem view.
//
// Grounded on the original FsPermissionMapper: map_to_wasi's operation
// table and get_preopen_dirs/pattern_to_dir_path's base-directory
// extraction are carried over verb-for-verb and component-for-component.
package sandbox

import (
	"log/slog"
	"path"
	"strings"

	"github.com/mcpkit-go/policyguard/internal/domain/compiledpolicy"
)

// DirPerms mirrors wazero/wasmtime-wasi's directory permission bits.
type DirPerms uint8

const (
	DirRead DirPerms = 1 << iota
	DirMutate
)

// FilePerms mirrors wazero/wasmtime-wasi's file permission bits.
type FilePerms uint8

const (
	FileRead FilePerms = 1 << iota
	FileWrite
)

// MapAccess translates policy access verb strings ("read", "write",
// "execute") into the WASI-style permission pair a sandboxed module mount
// is configured with. Unknown verbs are logged and ignored rather than
// rejected, matching the original mapper's warn-and-skip behavior.
func MapAccess(access []string) (DirPerms, FilePerms) {
	var dir DirPerms
	var file FilePerms
	for _, op := range access {
		switch op {
		case "read":
			dir |= DirRead
			file |= FileRead
		case "write":
			dir |= DirRead | DirMutate
			file |= FileRead | FileWrite
		case "execute":
			// Executable content is read, never mutated, by the guest.
			dir |= DirRead
			file |= FileRead
		default:
			slog.Warn("sandbox: unknown filesystem permission", "op", op)
		}
	}
	return dir, file
}

// PreopenDir is one directory the sandbox must mount before the guest
// module starts, with the permissions the policy grants on it.
type PreopenDir struct {
	HostPath  string
	GuestPath string
	DirPerms  DirPerms
	FilePerms FilePerms
}

func accessVerbStrings(v compiledpolicy.AccessVerb) []string {
	var out []string
	if v&compiledpolicy.AccessRead != 0 {
		out = append(out, "read")
	}
	if v&compiledpolicy.AccessWrite != 0 {
		out = append(out, "write")
	}
	if v&compiledpolicy.AccessExecute != 0 {
		out = append(out, "execute")
	}
	return out
}

// PreopenDirs derives the set of host directories a compiled policy's
// storage grants require mounting, one entry per distinct base directory.
// A nil policy yields no mounts — the sandbox starts with no filesystem
// access at all, never an implicit default.
func PreopenDirs(cp *compiledpolicy.Policy) []PreopenDir {
	if cp == nil {
		return nil
	}
	seen := map[string]struct{}{}
	var dirs []PreopenDir
	for pattern, access := range cp.StorageAccessMap {
		dir := patternToDirPath(pattern)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirPerms, filePerms := MapAccess(accessVerbStrings(access))
		dirs = append(dirs, PreopenDir{
			HostPath:  dir,
			GuestPath: dir,
			DirPerms:  dirPerms,
			FilePerms: filePerms,
		})
	}
	return dirs
}

// patternToDirPath walks a normalized storage pattern's path components and
// stops at the first component containing a glob wildcard, returning
// everything before it. A pattern with no usable prefix defaults to /tmp,
// matching the original mapper's fallback.
func patternToDirPath(pattern string) string {
	pattern = strings.TrimPrefix(pattern, "fs://")
	if pattern == "" {
		return "/tmp"
	}

	var kept []string
	for _, component := range strings.Split(pattern, "/") {
		if component == "" {
			continue
		}
		if strings.ContainsAny(component, "*?[") {
			break
		}
		kept = append(kept, component)
	}

	if len(kept) == 0 {
		return "/tmp"
	}

	dir := strings.Join(kept, "/")
	if strings.HasPrefix(pattern, "/") {
		dir = "/" + dir
	}
	return path.Clean(dir)
}
