package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-ltienrol/internal/host"
)

func (s *Store) CourseCompleted(ctx context.Context, courseID, userID int64) (bool, error) {
	var done sql.NullInt64
	err := s.DB.QueryRowContext(ctx, `
		SELECT timecompleted FROM course_completions WHERE courseid=$1 AND userid=$2`, courseID, userID).Scan(&done)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("course completion: %w", err)
	}
	return done.Valid && done.Int64 > 0, nil
}

// CourseGrade returns the user's course total. Value is nil when the user
// has no grade yet; ErrNotFound means the course has no total item.
func (s *Store) CourseGrade(ctx context.Context, courseID, userID int64) (host.Grade, error) {
	var (
		max   float64
		value sql.NullFloat64
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT i.grademax, g.finalgrade
		FROM grade_items i
		LEFT JOIN grade_grades g ON g.itemid = i.id AND g.userid = $2
		WHERE i.courseid=$1 AND i.itemtype='course'`, courseID, userID).Scan(&max, &value)
	if err != nil {
		return host.Grade{}, notFound(fmt.Sprintf("course grade %d", courseID), err)
	}
	return host.Grade{Value: nullFloat(value), Max: &max}, nil
}

func (s *Store) ModuleCompletion(ctx context.Context, cmID, userID int64) (host.CompletionState, error) {
	var st int
	err := s.DB.QueryRowContext(ctx, `
		SELECT completionstate FROM module_completions WHERE cmid=$1 AND userid=$2`, cmID, userID).Scan(&st)
	if errors.Is(err, sql.ErrNoRows) {
		return host.CompletionIncomplete, nil
	}
	if err != nil {
		return 0, fmt.Errorf("module completion: %w", err)
	}
	return host.CompletionState(st), nil
}

// ModuleGradeItems returns the grade items of course module cmID in sort
// order, each carrying the user's grade if one exists.
func (s *Store) ModuleGradeItems(ctx context.Context, cmID, userID int64) ([]host.GradeItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT i.id, i.grademax, g.id, g.finalgrade, g.rawgrademax
		FROM grade_items i
		LEFT JOIN grade_grades g ON g.itemid = i.id AND g.userid = $2
		WHERE i.itemtype='mod' AND i.cmid=$1
		ORDER BY i.sortorder, i.id`, cmID, userID)
	if err != nil {
		return nil, fmt.Errorf("module grade items: %w", err)
	}
	defer rows.Close()
	var out []host.GradeItem
	for rows.Next() {
		var (
			it         host.GradeItem
			gradeID    sql.NullInt64
			value, max sql.NullFloat64
		)
		if err := rows.Scan(&it.ID, &it.GradeMax, &gradeID, &value, &max); err != nil {
			return nil, fmt.Errorf("scan grade item: %w", err)
		}
		if gradeID.Valid {
			it.Grades = []host.Grade{{Value: nullFloat(value), Max: nullFloat(max)}}
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
