package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-ltienrol/internal/host"
)

const userColumns = `id, username, auth, firstname, lastname, email, city, country, institution,
	timezone, maildisplay, mnethostid, confirmed, lang FROM users`

func scanUser(row scanner) (host.User, error) {
	var (
		u         host.User
		confirmed int
	)
	err := row.Scan(&u.ID, &u.Username, &u.Auth, &u.FirstName, &u.LastName, &u.Email, &u.City, &u.Country,
		&u.Institution, &u.Timezone, &u.MailDisplay, &u.MNetHostID, &confirmed, &u.Lang)
	u.Confirmed = confirmed == 1
	return u, err
}

func (s *Store) UserByUsername(ctx context.Context, username string) (host.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` WHERE username=$1 AND deleted=0`, username))
	if err != nil {
		return host.User{}, notFound("user "+username, err)
	}
	return u, nil
}

func (s *Store) User(ctx context.Context, id int64) (host.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` WHERE id=$1`, id))
	if err != nil {
		return host.User{}, notFound(fmt.Sprintf("user %d", id), err)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u host.User) (int64, error) {
	now := time.Now().Unix()
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO users (username, auth, firstname, lastname, email, city, country, institution,
		                   timezone, maildisplay, mnethostid, confirmed, lang, timecreated, timemodified)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15) RETURNING id`,
		u.Username, u.Auth, u.FirstName, u.LastName, u.Email, u.City, u.Country, u.Institution,
		u.Timezone, u.MailDisplay, u.MNetHostID, b2i(u.Confirmed), u.Lang, now, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create user %s: %w", u.Username, err)
	}
	return id, nil
}

// UpdateUser overwrites the profile fields of user u.ID.
func (s *Store) UpdateUser(ctx context.Context, u host.User) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE users SET firstname=$1, lastname=$2, email=$3, city=$4, country=$5, institution=$6,
		       timezone=$7, maildisplay=$8, mnethostid=$9, confirmed=$10, lang=$11, timemodified=$12
		WHERE id=$13`,
		u.FirstName, u.LastName, u.Email, u.City, u.Country, u.Institution,
		u.Timezone, u.MailDisplay, u.MNetHostID, b2i(u.Confirmed), u.Lang, time.Now().Unix(), u.ID)
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return mustAffect(res, fmt.Sprintf("user %d", u.ID))
}
