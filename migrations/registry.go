// Package migrations locates the embedded reconciliation schema and hands the
// tree for each SQL dialect to a registration callback.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	giveapp "github.com/Chriskfigures777/give-app-sub003"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	defaultSourceLabel = "give-reconciler"
	rootPath           = "data/sql/migrations"
	upSuffix           = ".up.sql"
	downSuffix         = ".down.sql"
)

// Tree is one dialect's migration directory.
type Tree struct {
	Dialect  string
	Path     string
	FS       fs.FS
	Versions []string
}

type Registration struct {
	SourceLabel string
	Dialects    []string
	Trees       []Tree
}

// Registered reports the versions applied for dialect, if it was registered.
func (r Registration) Registered(dialect string) []string {
	for _, tree := range r.Trees {
		if tree.Dialect == dialect && slices.Contains(r.Dialects, dialect) {
			return tree.Versions
		}
	}
	return nil
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithSourceLabel(label string) Option {
	return func(r *Registration) {
		if label = strings.TrimSpace(label); label != "" {
			r.SourceLabel = label
		}
	}
}

// WithDialects narrows registration to the named dialects.
func WithDialects(dialects ...string) Option {
	return func(r *Registration) {
		var next []string
		for _, dialect := range dialects {
			dialect = strings.ToLower(strings.TrimSpace(dialect))
			if dialect != "" && !slices.Contains(next, dialect) {
				next = append(next, dialect)
			}
		}
		if len(next) > 0 {
			r.Dialects = next
		}
	}
}

// Trees resolves the postgres and sqlite directories from root (the embedded
// tree by default). Every up file must have a down file and both dialects
// must carry the same versions.
func Trees(root ...fs.FS) ([]Tree, error) {
	source := giveapp.GetMigrationsFS()
	if len(root) > 0 && root[0] != nil {
		source = root[0]
	}
	base, err := fs.Sub(source, rootPath)
	if err != nil {
		return nil, fmt.Errorf("migrations: %s: %w", rootPath, err)
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: sqlite tree: %w", err)
	}
	trees := []Tree{
		{Dialect: DialectPostgres, Path: rootPath, FS: base},
		{Dialect: DialectSQLite, Path: rootPath + "/sqlite", FS: sqliteFS},
	}
	for i := range trees {
		versions, err := versions(trees[i])
		if err != nil {
			return nil, err
		}
		trees[i].Versions = versions
	}
	if !slices.Equal(trees[0].Versions, trees[1].Versions) {
		return nil, fmt.Errorf("migrations: dialect trees diverge: postgres=%v sqlite=%v", trees[0].Versions, trees[1].Versions)
	}
	return trees, nil
}

func versions(tree Tree) ([]string, error) {
	ups, err := fs.Glob(tree.FS, "*"+upSuffix)
	if err != nil {
		return nil, fmt.Errorf("migrations: glob %s: %w", tree.Path, err)
	}
	if len(ups) == 0 {
		return nil, fmt.Errorf("migrations: %s has no %s files", tree.Path, upSuffix)
	}
	out := make([]string, 0, len(ups))
	for _, up := range ups {
		version := strings.TrimSuffix(up, upSuffix)
		if _, err := fs.Stat(tree.FS, version+downSuffix); err != nil {
			return nil, fmt.Errorf("migrations: %s/%s has no down migration", tree.Path, up)
		}
		out = append(out, version)
	}
	slices.Sort(out)
	return out, nil
}

// Register passes each selected dialect tree to registerFn.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel: defaultSourceLabel,
		Dialects:    []string{DialectPostgres, DialectSQLite},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}
	trees, err := Trees()
	if err != nil {
		return reg, err
	}
	reg.Trees = trees
	for _, dialect := range reg.Dialects {
		if dialect != DialectPostgres && dialect != DialectSQLite {
			return reg, fmt.Errorf("migrations: unknown dialect %q", dialect)
		}
	}
	for _, tree := range trees {
		if !slices.Contains(reg.Dialects, tree.Dialect) {
			continue
		}
		if err := registerFn(ctx, tree.Dialect, reg.SourceLabel, tree.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s: %w", tree.Dialect, err)
		}
	}
	return reg, nil
}
