package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mind-engage/mindengage-ltienrol/internal/host"
)

func (s *Store) Membership(ctx context.Context, toolID, userID int64) (host.Membership, error) {
	var (
		m     host.Membership
		ext   sql.NullString
		grade sql.NullFloat64
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, toolid, userid, externalid, lastgrade, lastaccess, timecreated
		FROM lti_users WHERE toolid=$1 AND userid=$2`, toolID, userID).
		Scan(&m.ID, &m.ToolID, &m.UserID, &ext, &grade, &m.LastAccess, &m.TimeCreated)
	if err != nil {
		return host.Membership{}, notFound(fmt.Sprintf("membership %d/%d", toolID, userID), err)
	}
	m.ExternalID = ext.String
	m.LastGrade = nullFloat(grade)
	return m, nil
}

// CreateMembership inserts a membership with no last grade.
func (s *Store) CreateMembership(ctx context.Context, m host.Membership) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO lti_users (toolid, userid, externalid, lastgrade, lastaccess, timecreated)
		VALUES ($1,$2,$3,NULL,$4,$5) RETURNING id`,
		m.ToolID, m.UserID, nullString(m.ExternalID), m.LastAccess, m.TimeCreated).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create membership: %w", err)
	}
	return id, nil
}

// TouchMembership records a new launch. An empty externalID keeps the stored one.
func (s *Store) TouchMembership(ctx context.Context, id, lastAccess int64, externalID string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE lti_users SET lastaccess=$1, externalid=COALESCE($2, externalid) WHERE id=$3`,
		lastAccess, nullString(externalID), id)
	if err != nil {
		return fmt.Errorf("touch membership %d: %w", id, err)
	}
	return mustAffect(res, fmt.Sprintf("membership %d", id))
}

// Memberships lists a tool's members with the time end of their enrolment
// through the tool's enrolment instance.
func (s *Store) Memberships(ctx context.Context, toolID int64) ([]host.Membership, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT u.id, u.toolid, u.userid, u.externalid, u.lastgrade, u.lastaccess, u.timecreated,
		       COALESCE(ue.timeend, 0)
		FROM lti_users u
		JOIN lti_tools t ON t.id = u.toolid
		LEFT JOIN user_enrolments ue ON ue.enrolid = t.enrolid AND ue.userid = u.userid
		WHERE u.toolid=$1
		ORDER BY u.id`, toolID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()
	var out []host.Membership
	for rows.Next() {
		var (
			m     host.Membership
			ext   sql.NullString
			grade sql.NullFloat64
		)
		if err := rows.Scan(&m.ID, &m.ToolID, &m.UserID, &ext, &grade, &m.LastAccess, &m.TimeCreated, &m.TimeEnd); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		m.ExternalID = ext.String
		m.LastGrade = nullFloat(grade)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) SetLastGrade(ctx context.Context, membershipID int64, grade float64) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE lti_users SET lastgrade=$1 WHERE id=$2`, grade, membershipID)
	if err != nil {
		return fmt.Errorf("set last grade: %w", err)
	}
	return nil
}

// AddCredential registers a service key for a membership; duplicates are ignored.
func (s *Store) AddCredential(ctx context.Context, membershipID int64, serviceKey string, now int64) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO lti_service_keys (membershipid, servicekey, timecreated)
		VALUES ($1,$2,$3)
		ON CONFLICT (membershipid, servicekey) DO NOTHING`, membershipID, serviceKey, now)
	if err != nil {
		return fmt.Errorf("add credential: %w", err)
	}
	return nil
}

func (s *Store) Credentials(ctx context.Context, membershipID int64) ([]host.Credential, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, membershipid, servicekey FROM lti_service_keys
		WHERE membershipid=$1 ORDER BY id`, membershipID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()
	var out []host.Credential
	for rows.Next() {
		var c host.Credential
		if err := rows.Scan(&c.ID, &c.MembershipID, &c.ServiceKey); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
