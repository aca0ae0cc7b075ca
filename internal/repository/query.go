package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

// ListFilter holds the common list parameters. Zero values disable a filter.
type ListFilter struct {
	Search     string
	Status     string
	Kind       string
	CustomerID int
	Page       utils.Page
}

// conditions accumulates WHERE clauses with numbered placeholders.
type conditions struct {
	clauses []string
	args    []interface{}
}

// scoped starts a condition list restricted to one business.
func scoped(column string, businessID int) *conditions {
	c := &conditions{}
	c.add(column+" = $%d", businessID)
	return c
}

// add appends a clause; every %d in format becomes the next placeholder index.
func (c *conditions) add(format string, arg interface{}) {
	c.args = append(c.args, arg)
	n := len(c.args)
	c.clauses = append(c.clauses, strings.ReplaceAll(format, "%d", fmt.Sprint(n)))
}

// raw appends a clause without arguments.
func (c *conditions) raw(clause string) {
	c.clauses = append(c.clauses, clause)
}

// search adds a case-insensitive match over the given columns.
func (c *conditions) search(term string, columns ...string) {
	if term == "" {
		return
	}
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = col + " ILIKE $%d"
	}
	c.add("("+strings.Join(parts, " OR ")+")", "%"+likeEscaper.Replace(term)+"%")
}

// likeEscaper escapes LIKE wildcards with PostgreSQL's default backslash escape.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// page returns the LIMIT/OFFSET suffix and its arguments appended to args.
func (c *conditions) page(p utils.Page) (string, []interface{}) {
	n := len(c.args)
	args := append(append([]interface{}{}, c.args...), p.Limit, p.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), args
}

// mapErr converts driver errors into service sentinels.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, utils.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%s already exists: %w", what, utils.ErrDuplicate)
		case "23503", "23514":
			return fmt.Errorf("%s: %s: %w", what, pqErr.Message, utils.ErrInvalidInput)
		}
	}
	return err
}

// affected returns ErrNotFound when an UPDATE or DELETE touched no row.
func affected(res sql.Result, err error, what string) error {
	if err != nil {
		return mapErr(err, what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, utils.ErrNotFound)
	}
	return nil
}
