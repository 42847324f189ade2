// Package registry keeps the student roster: who is enrolled in which class
// and whom to notify when their attendance is marked.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Registry is unique by reg_no and first registration wins.
type Registry interface {
	// Register adds s unless its reg_no is known; created is false for a duplicate.
	Register(ctx context.Context, s domain.Student) (created bool, err error)
	Get(ctx context.Context, regNo string) (domain.Student, error)
	List(ctx context.Context) ([]domain.Student, error)
}

// Header is the canonical column order of registry files.
var Header = []string{"reg_no", "name", "class", "parent_email"}

const (
	colRegNo = iota
	colName
	colClass
	colParentEmail
)

var headerAliases = map[string]int{
	"reg_no":       colRegNo,
	"reg no":       colRegNo,
	"name":         colName,
	"student name": colName,
	"class":        colClass,
	"class_name":   colClass,
	"class name":   colClass,
	"parent_email": colParentEmail,
	"parent email": colParentEmail,
	"email":        colParentEmail,
}

// columns maps a header row to field positions. reg_no and name are required.
func columns(head []string) ([4]int, error) {
	index := [4]int{-1, -1, -1, -1}
	for i, cell := range head {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")))
		if col, ok := headerAliases[key]; ok && index[col] < 0 {
			index[col] = i
		}
	}
	if index[colRegNo] < 0 || index[colName] < 0 {
		return index, fmt.Errorf("header %q needs reg_no and name columns", strings.Join(head, ","))
	}
	return index, nil
}

// fromRow builds a student from one data row laid out by index.
func fromRow(index [4]int, row []string) domain.Student {
	cell := func(col int) string {
		i := index[col]
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	return domain.Student{
		RegNo:       cell(colRegNo),
		Name:        cell(colName),
		Class:       cell(colClass),
		ParentEmail: cell(colParentEmail),
	}
}

// Normalize validates s and returns it with a normalized name.
func Normalize(s domain.Student) (domain.Student, error) {
	id := s.Identity()
	if err := id.Validate(); err != nil {
		return domain.Student{}, err
	}
	id = id.Normalized()
	if err := domain.ValidateRegNo(id.RegNo); err != nil {
		return domain.Student{}, err
	}
	if s.Class != "" {
		if err := domain.ValidateClass(s.Class); err != nil {
			return domain.Student{}, err
		}
	}
	email := strings.TrimSpace(s.ParentEmail)
	if email != "" && !strings.Contains(email, "@") {
		return domain.Student{}, domain.ErrValidationFailed.WithError(errors.New("parent_email is not an address"))
	}
	return domain.Student{
		RegNo:       id.RegNo,
		Name:        id.Name,
		Class:       s.Class,
		ParentEmail: email,
	}, nil
}
