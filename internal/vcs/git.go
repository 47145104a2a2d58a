package vcs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sergeknystautas/revstamp/internal/record"
)

// gitShortLen is the fixed abbreviation length for git hashes. git's own
// --short length depends on repository size, so it is not used.
const gitShortLen = 7

// Git extracts metadata with the git command line.
type Git struct {
	unsupported
	root string
	run  Runner
}

// NewGit returns a git extractor for the working copy at root.
func NewGit(root string, run Runner) *Git {
	return &Git{root: root, run: run}
}

func (g *Git) Type() record.Type { return record.TypeGit }
func (g *Git) Root() string { return g.root }

func (g *Git) Capabilities() Capability {
	return CapRevisionID | CapOrdinal | CapTick | CapBranch | CapTag | CapDate |
		CapModified | CapUUID | CapTagSignature | CapCommitSignature | CapDescribe
}

func (g *Git) git(ctx context.Context, args ...string) (string, error) {
	out, err := g.run.Run(ctx, g.root, "git", args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Stdout), nil
}

func (g *Git) RevisionID(ctx context.Context) (string, error) {
	out, err := g.git(ctx, "rev-parse", "--verify", "HEAD")
	if err != nil {
		return "", err
	}
	// sha1 or sha256 object format
	return checkHash(out, 40, 64)
}

// RevisionOrdinal counts commits along the first-parent chain, the linear
// history of the current branch.
func (g *Git) RevisionOrdinal(ctx context.Context) (int, error) {
	out, err := g.git(ctx, "rev-list", "--count", "--first-parent", "HEAD")
	if err != nil {
		return 0, err
	}
	return parseCount(out)
}

// Tick counts every commit reachable from HEAD, so merging a branch advances
// it by the number of commits merged.
func (g *Git) Tick(ctx context.Context) (int, error) {
	out, err := g.git(ctx, "rev-list", "--count", "HEAD")
	if err != nil {
		return 0, err
	}
	return parseCount(out)
}

// Branch returns "" on a detached HEAD.
func (g *Git) Branch(ctx context.Context) (string, error) {
	out, err := g.git(ctx, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		// -q: exit 1 without a message means HEAD is not a symbolic ref
		if exitCode(err) == 1 && strings.TrimSpace(stderrOf(err)) == "" {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

func (g *Git) Tags(ctx context.Context) ([]string, error) {
	out, err := g.git(ctx, "tag", "--points-at", "HEAD")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

func (g *Git) CommitDate(ctx context.Context) (time.Time, error) {
	out, err := g.git(ctx, "log", "-1", "--format=%cI", "HEAD")
	if err != nil {
		return time.Time{}, err
	}
	return parseDate(time.RFC3339, out)
}

// Modified counts staged and unstaged changes to tracked files, including
// deletions, renames and type changes. Untracked and ignored files do not
// count.
func (g *Git) Modified(ctx context.Context) (bool, error) {
	out, err := g.git(ctx, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// RepositoryUUID is the root commit. With several roots (merged unrelated
// histories) the lexicographically smallest is used so the answer is stable.
func (g *Git) RepositoryUUID(ctx context.Context) (string, error) {
	out, err := g.git(ctx, "rev-list", "--max-parents=0", "HEAD")
	if err != nil {
		return "", err
	}
	roots := lines(out)
	if len(roots) == 0 {
		return "", fmt.Errorf("%w: no root commit", ErrUnparseable)
	}
	sort.Strings(roots)
	return checkHash(roots[0], 40, 64)
}

// TagSignature verifies an annotated tag. Lightweight and unsigned tags yield "".
func (g *Git) TagSignature(ctx context.Context, tag string) (string, error) {
	out, err := g.run.Run(ctx, g.root, "git", "verify-tag", "--raw", tag)
	status := out.Stderr
	if err != nil {
		status = stderrOf(err)
	}
	if s := parseGPGStatus(status); s != "" {
		return s, nil
	}
	if err != nil {
		lower := strings.ToLower(status)
		if strings.Contains(lower, "no signature found") || strings.Contains(lower, "non-tag object") {
			return "", nil
		}
		return "", err
	}
	return "", nil
}

// CommitSignature reports git's %G? verdict with the signing key fingerprint.
func (g *Git) CommitSignature(ctx context.Context) (string, error) {
	out, err := g.git(ctx, "log", "-1", "--format=%G?:%GF", "HEAD")
	if err != nil {
		return "", err
	}
	code, fpr, _ := strings.Cut(out, ":")
	state, ok := gitSignatureStates[code]
	if !ok {
		return "", fmt.Errorf("%w: signature status %q", ErrUnparseable, out)
	}
	if state == "" {
		return "", nil
	}
	if fpr != "" {
		return state + ":" + fpr, nil
	}
	return state, nil
}

var gitSignatureStates = map[string]string{
	"G": "good",
	"B": "bad",
	"U": "unknown",
	"X": "expired",
	"Y": "expired-key",
	"R": "revoked",
	"E": "error",
	"N": "",
}

// Describe returns git describe --tags --long, or "" when no tag is reachable.
func (g *Git) Describe(ctx context.Context) (string, error) {
	out, err := g.git(ctx, "describe", "--tags", "--long", fmt.Sprintf("--abbrev=%d", gitShortLen), "HEAD")
	if err != nil {
		msg := stderrOf(err)
		if strings.Contains(msg, "No names found") || strings.Contains(msg, "No tags can describe") {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

func (g *Git) ShortHash(full string) string {
	return prefix(full, gitShortLen)
}

// parseGPGStatus reads gpg --status-fd lines as printed by git verify-tag --raw.
func parseGPGStatus(s string) string {
	var verdict, fpr string
	for _, l := range lines(s) {
		fields := strings.Fields(strings.TrimPrefix(l, "[GNUPG:] "))
		if len(fields) == 0 || !strings.HasPrefix(l, "[GNUPG:]") {
			continue
		}
		switch fields[0] {
		case "VALIDSIG":
			if len(fields) > 1 {
				fpr = fields[1]
			}
		case "GOODSIG":
			if verdict == "" {
				verdict = "good"
			}
		case "BADSIG":
			verdict = "bad"
		case "EXPSIG":
			verdict = "expired"
		case "EXPKEYSIG":
			verdict = "expired-key"
		case "REVKEYSIG":
			verdict = "revoked"
		case "ERRSIG", "NO_PUBKEY":
			if verdict == "" {
				verdict = "unknown"
			}
		}
	}
	if verdict == "good" && fpr != "" {
		return verdict + ":" + fpr
	}
	return verdict
}
