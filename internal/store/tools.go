package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-ltienrol/internal/db"
	"github.com/mind-engage/mindengage-ltienrol/internal/host"
)

const toolColumns = `
	t.id, t.enrolid, t.contextid, e.courseid, e.name, t.customdescription, e.status,
	e.enrolstartdate, e.enrolenddate, e.enrolperiod, t.maxenrolled,
	t.roleinstructor, t.rolelearner, t.gradesync, t.gradesynccompletion,
	t.institution, t.city, t.country, t.timezone, t.lang, t.maildisplay,
	t.timecreated, t.timemodified
	FROM lti_tools t JOIN enrol_instances e ON e.id = t.enrolid`

func scanTool(row scanner) (host.Tool, error) {
	var (
		t                     host.Tool
		status, sync, syncCmp int
		mail                  sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.EnrolID, &t.ContextID, &t.CourseID, &t.Name, &t.CustomDescription, &status,
		&t.EnrolStartDate, &t.EnrolEndDate, &t.EnrolPeriod, &t.MaxEnrolled,
		&t.RoleInstructor, &t.RoleLearner, &sync, &syncCmp,
		&t.Institution, &t.City, &t.Country, &t.Timezone, &t.Lang, &mail,
		&t.TimeCreated, &t.TimeModified)
	if err != nil {
		return host.Tool{}, err
	}
	t.Status = host.Status(status)
	t.GradeSync = sync == 1
	t.GradeSyncCompletion = syncCmp == 1
	if mail.Valid {
		v := int(mail.Int64)
		t.MailDisplay = &v
	}
	return t, nil
}

func (s *Store) Tool(ctx context.Context, id int64) (host.Tool, error) {
	t, err := scanTool(s.DB.QueryRowContext(ctx, `SELECT `+toolColumns+` WHERE t.id=$1`, id))
	if err != nil {
		return host.Tool{}, notFound(fmt.Sprintf("tool %d", id), err)
	}
	return t, nil
}

// Tools lists tools matching f ordered by id.
func (s *Store) Tools(ctx context.Context, f host.ToolFilter) ([]host.Tool, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, int(*f.Status))
		conds = append(conds, fmt.Sprintf("e.status = $%d", len(args)))
	}
	if f.CourseID != nil {
		args = append(args, *f.CourseID)
		conds = append(conds, fmt.Sprintf("e.courseid = $%d", len(args)))
	}
	if f.GradeSync != nil {
		args = append(args, b2i(*f.GradeSync))
		conds = append(conds, fmt.Sprintf("t.gradesync = $%d", len(args)))
	}
	if f.EnrolPeriodSet {
		conds = append(conds, "e.enrolperiod > 0")
	}
	q := `SELECT ` + toolColumns
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY t.id`

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	defer rows.Close()
	var out []host.Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tool: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTool creates the enrolment instance in courseID and the tool bound to it.
func (s *Store) CreateTool(ctx context.Context, courseID int64, in host.ToolInput, now int64) (host.Tool, error) {
	var t host.Tool
	in.Apply(&t)
	t.CourseID = courseID
	t.Status = host.StatusEnabled
	t.TimeCreated, t.TimeModified = now, now

	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO enrol_instances (enrol, courseid, status, name, enrolstartdate, enrolenddate, enrolperiod)
			VALUES ('ltiaas',$1,$2,$3,$4,$5,$6) RETURNING id`,
			courseID, int(t.Status), t.Name, t.EnrolStartDate, t.EnrolEndDate, t.EnrolPeriod).
			Scan(&t.EnrolID); err != nil {
			return fmt.Errorf("insert enrol instance: %w", err)
		}
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO lti_tools (enrolid, contextid, customdescription, maxenrolled, roleinstructor, rolelearner,
			                       gradesync, gradesynccompletion, institution, city, country, timezone, lang,
			                       maildisplay, timecreated, timemodified)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16) RETURNING id`,
			t.EnrolID, t.ContextID, t.CustomDescription, t.MaxEnrolled, t.RoleInstructor, t.RoleLearner,
			b2i(t.GradeSync), b2i(t.GradeSyncCompletion), t.Institution, t.City, t.Country, t.Timezone, t.Lang,
			mailArg(t.MailDisplay), t.TimeCreated, t.TimeModified).
			Scan(&t.ID); err != nil {
			return fmt.Errorf("insert tool: %w", err)
		}
		return nil
	})
	if err != nil {
		return host.Tool{}, err
	}
	return t, nil
}

// UpdateTool writes the editable fields of t.
func (s *Store) UpdateTool(ctx context.Context, t host.Tool, now int64) error {
	return db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE enrol_instances SET name=$1, enrolstartdate=$2, enrolenddate=$3, enrolperiod=$4
			WHERE id=$5`, t.Name, t.EnrolStartDate, t.EnrolEndDate, t.EnrolPeriod, t.EnrolID); err != nil {
			return fmt.Errorf("update enrol instance: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE lti_tools SET contextid=$1, customdescription=$2, maxenrolled=$3, roleinstructor=$4,
			       rolelearner=$5, gradesync=$6, gradesynccompletion=$7, institution=$8, city=$9,
			       country=$10, timezone=$11, lang=$12, maildisplay=$13, timemodified=$14
			WHERE id=$15`,
			t.ContextID, t.CustomDescription, t.MaxEnrolled, t.RoleInstructor,
			t.RoleLearner, b2i(t.GradeSync), b2i(t.GradeSyncCompletion), t.Institution, t.City,
			t.Country, t.Timezone, t.Lang, mailArg(t.MailDisplay), now, t.ID)
		if err != nil {
			return fmt.Errorf("update tool: %w", err)
		}
		return mustAffect(res, fmt.Sprintf("tool %d", t.ID))
	})
}

func (s *Store) SetToolStatus(ctx context.Context, id int64, st host.Status) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE enrol_instances SET status=$1
		WHERE id=(SELECT enrolid FROM lti_tools WHERE id=$2)`, int(st), id)
	if err != nil {
		return fmt.Errorf("set tool status: %w", err)
	}
	return mustAffect(res, fmt.Sprintf("tool %d", id))
}

// DeleteTool removes the tool, its memberships and credentials, and the
// enrolment instance with its user enrolments.
func (s *Store) DeleteTool(ctx context.Context, id int64) error {
	t, err := s.Tool(ctx, id)
	if err != nil {
		return err
	}
	return db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		stmts := []struct {
			q   string
			arg int64
		}{
			{`DELETE FROM lti_service_keys WHERE membershipid IN (SELECT id FROM lti_users WHERE toolid=$1)`, t.ID},
			{`DELETE FROM lti_users WHERE toolid=$1`, t.ID},
			{`DELETE FROM lti_tools WHERE id=$1`, t.ID},
			{`DELETE FROM user_enrolments WHERE enrolid=$1`, t.EnrolID},
			{`DELETE FROM enrol_instances WHERE id=$1`, t.EnrolID},
		}
		for _, st := range stmts {
			if _, err := tx.ExecContext(ctx, st.q, st.arg); err != nil {
				return fmt.Errorf("delete tool %d: %w", id, err)
			}
		}
		return nil
	})
}

func mailArg(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func mustAffect(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, host.ErrNotFound)
	}
	return nil
}
