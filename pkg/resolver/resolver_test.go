package resolver

import (
	"testing"

	"github.com/packmap/packmap/pkg/lockfile"
	"github.com/packmap/packmap/pkg/pkgmap"
)

func buildTestResolver(t *testing.T) *Resolver {
	t.Helper()
	lock, err := lockfile.Parse([]byte(`
root:
  left-pad: left-pad@1.3.0
  is-odd: is-odd@3.0.1
packages:
  left-pad@1.3.0:
    resolved: https://registry.example/left-pad.tgz
    integrity: sha256-deadbeef
    files:
      index.js:
        digest: sha256-aaaa
        size: 120
        mode: 420
  is-odd@3.0.1:
    resolved: https://registry.example/is-odd.tgz
    integrity: sha256-cafebabe
    dependencies:
      is-number: is-number@6.0.0
    files:
      index.js:
        digest: sha256-bbbb
        size: 64
        mode: 420
  is-number@6.0.0:
    resolved: https://registry.example/is-number.tgz
    integrity: sha256-f00dface
    files:
      index.js:
        digest: sha256-cccc
        size: 32
        mode: 420
`))
	if err != nil {
		t.Fatal(err)
	}

	root, err := pkgmap.Build(lock, nil)
	if err != nil {
		t.Fatal(err)
	}

	return New("/project", root)
}

func TestResolveUntrackedOutsideProjectRoot(t *testing.T) {
	r := buildTestResolver(t)
	res := r.Resolve("/etc/passwd")
	if res.Kind != Untracked {
		t.Errorf("Resolve() Kind = %v, want Untracked", res.Kind)
	}
}

func TestResolveUntrackedForProjectSourceFiles(t *testing.T) {
	r := buildTestResolver(t)
	res := r.Resolve("/project/src/index.js")
	if res.Kind != Untracked {
		t.Errorf("Resolve() Kind = %v, want Untracked", res.Kind)
	}
}

func TestResolveFileEntry(t *testing.T) {
	r := buildTestResolver(t)
	res := r.Resolve("/project/node_modules/left-pad/index.js")
	if res.Kind != File {
		t.Fatalf("Resolve() Kind = %v, want File", res.Kind)
	}
	if res.Entry.Digest != "sha256-aaaa" {
		t.Errorf("unexpected digest: %q", res.Entry.Digest)
	}
}

func TestResolveDirEntry(t *testing.T) {
	r := buildTestResolver(t)
	res := r.Resolve("/project/node_modules/left-pad")
	if res.Kind != Dir {
		t.Fatalf("Resolve() Kind = %v, want Dir", res.Kind)
	}
	if res.Children["index.js"] == nil {
		t.Error("expected left-pad's directory listing to include index.js")
	}
}

func TestResolveTopLevelNodeModulesIsDir(t *testing.T) {
	r := buildTestResolver(t)
	res := r.Resolve("/project/node_modules")
	if res.Kind != Dir {
		t.Fatalf("Resolve() Kind = %v, want Dir", res.Kind)
	}
	if res.Children["left-pad"] == nil || res.Children["is-odd"] == nil {
		t.Error("expected top-level node_modules to list left-pad and is-odd")
	}
}

func TestResolveMissingWithinDependencyRoot(t *testing.T) {
	r := buildTestResolver(t)
	res := r.Resolve("/project/node_modules/does-not-exist")
	if res.Kind != Missing {
		t.Errorf("Resolve() Kind = %v, want Missing", res.Kind)
	}
}

func TestResolveVirtualEmptyNodeModulesTerminatesLookup(t *testing.T) {
	r := buildTestResolver(t)
	res := r.Resolve("/project/node_modules/left-pad/node_modules")
	if res.Kind != Dir {
		t.Fatalf("Resolve() Kind = %v, want Dir (virtual empty directory)", res.Kind)
	}
	if len(res.Children) != 0 {
		t.Errorf("expected the virtual node_modules to be empty, got %d children", len(res.Children))
	}
}

func TestResolveNestedTransitiveDependency(t *testing.T) {
	r := buildTestResolver(t)
	res := r.Resolve("/project/node_modules/is-odd/node_modules/is-number/index.js")
	if res.Kind != File {
		t.Fatalf("Resolve() Kind = %v, want File", res.Kind)
	}
	if res.Entry.Digest != "sha256-cccc" {
		t.Errorf("unexpected digest: %q", res.Entry.Digest)
	}
}

func TestResolveNilMapIsAlwaysMissing(t *testing.T) {
	r := New("/project", nil)
	res := r.Resolve("/project/node_modules/left-pad")
	if res.Kind != Missing {
		t.Errorf("Resolve() Kind = %v, want Missing", res.Kind)
	}
}
