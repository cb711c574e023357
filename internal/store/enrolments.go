package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-ltienrol/internal/db"
	"github.com/mind-engage/mindengage-ltienrol/internal/host"
)

func (s *Store) Enrolment(ctx context.Context, enrolID, userID int64) (host.UserEnrolment, error) {
	var e host.UserEnrolment
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, enrolid, userid, timestart, timeend FROM user_enrolments
		WHERE enrolid=$1 AND userid=$2`, enrolID, userID).
		Scan(&e.ID, &e.EnrolID, &e.UserID, &e.TimeStart, &e.TimeEnd)
	if err != nil {
		return host.UserEnrolment{}, notFound(fmt.Sprintf("enrolment %d/%d", enrolID, userID), err)
	}
	return e, nil
}

func (s *Store) CountEnrolments(ctx context.Context, enrolID int64) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_enrolments WHERE enrolid=$1`, enrolID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count enrolments: %w", err)
	}
	return n, nil
}

// Enrol creates or refreshes the user's enrolment in e.EnrolID.
func (s *Store) Enrol(ctx context.Context, e host.UserEnrolment) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO user_enrolments (enrolid, userid, timestart, timeend, timecreated)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (enrolid, userid)
		DO UPDATE SET timestart=EXCLUDED.timestart, timeend=EXCLUDED.timeend`,
		e.EnrolID, e.UserID, e.TimeStart, e.TimeEnd, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("enrol user %d: %w", e.UserID, err)
	}
	return nil
}

// AssignRole is idempotent.
func (s *Store) AssignRole(ctx context.Context, roleID, userID, contextID int64) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO role_assignments (roleid, userid, contextid, timemodified)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (roleid, userid, contextid) DO NOTHING`,
		roleID, userID, contextID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("assign role %d to user %d: %w", roleID, userID, err)
	}
	return nil
}

// Unenrol removes the user's enrolment through tool t together with its
// role assignments in the tool context, the membership and its credentials.
func (s *Store) Unenrol(ctx context.Context, t host.Tool, userID int64) error {
	return db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		stmts := []struct {
			q    string
			args []any
		}{
			{`DELETE FROM lti_service_keys WHERE membershipid IN
			    (SELECT id FROM lti_users WHERE toolid=$1 AND userid=$2)`, []any{t.ID, userID}},
			{`DELETE FROM lti_users WHERE toolid=$1 AND userid=$2`, []any{t.ID, userID}},
			{`DELETE FROM user_enrolments WHERE enrolid=$1 AND userid=$2`, []any{t.EnrolID, userID}},
			{`DELETE FROM role_assignments WHERE userid=$1 AND contextid=$2`, []any{userID, t.ContextID}},
		}
		for _, st := range stmts {
			if _, err := tx.ExecContext(ctx, st.q, st.args...); err != nil {
				return fmt.Errorf("unenrol user %d from tool %d: %w", userID, t.ID, err)
			}
		}
		return nil
	})
}
