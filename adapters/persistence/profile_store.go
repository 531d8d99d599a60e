package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// postgresProfileStore keeps one row per user in profiles. Sections are JSONB arrays
// in columns named after the field.
type postgresProfileStore struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresProfileStore(db *pgxpool.Pool, log logger.Logger) profile.Store {
	return &postgresProfileStore{db: db, logger: log}
}

func (r *postgresProfileStore) Get(ctx context.Context, ownerID string) (*profile.Document, error) {
	query, args, err := psql.
		Select("first_name", "last_name", "email", "mobile", "bio", "profile_image_ref",
			"education", "experience", "certifications", "skills", "updated_at").
		From("profiles").
		Where(sq.Eq{"owner_id": ownerID}).
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build profile query", err)
	}

	doc := profile.NewDocument(ownerID)
	var imageRef sql.NullString
	var education, experience, certifications, skills []byte
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&doc.Profile.FirstName,
		&doc.Profile.LastName,
		&doc.Profile.Email,
		&doc.Profile.Mobile,
		&doc.Profile.Bio,
		&imageRef,
		&education,
		&experience,
		&certifications,
		&skills,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.NewInternal("failed to query profile", err)
	}

	if imageRef.Valid {
		doc.Profile.ProfileImageRef = &imageRef.String
	}
	sections := []struct {
		field profile.Field
		raw   []byte
		dst   any
	}{
		{profile.FieldEducation, education, &doc.Education},
		{profile.FieldExperience, experience, &doc.Experience},
		{profile.FieldCertifications, certifications, &doc.Certifications},
		{profile.FieldSkills, skills, &doc.Skills},
	}
	for _, sec := range sections {
		if err := r.unmarshalSection(ownerID, sec.field, sec.raw, sec.dst); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// unmarshalSection fails the read when the stored JSON is unreadable.
func (r *postgresProfileStore) unmarshalSection(ownerID string, field profile.Field, raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.logger.Warn("Failed to unmarshal section", zap.String("owner_id", ownerID), zap.String("section", string(field)), zap.Error(err))
		return apperror.NewInternal("failed to decode "+string(field), err)
	}
	return nil
}

// SetMerge upserts only the columns present in patch.
func (r *postgresProfileStore) SetMerge(ctx context.Context, ownerID string, patch profile.Patch) error {
	if patch.IsEmpty() {
		return nil
	}

	columns := []string{"owner_id"}
	values := []any{ownerID}
	add := func(column string, v *string) {
		if v != nil {
			columns = append(columns, column)
			values = append(values, *v)
		}
	}
	add("first_name", patch.FirstName)
	add("last_name", patch.LastName)
	add("email", patch.Email)
	add("mobile", patch.Mobile)
	add("bio", patch.Bio)
	add("profile_image_ref", patch.ProfileImageRef)

	suffix := "ON CONFLICT (owner_id) DO UPDATE SET updated_at = NOW()"
	for _, c := range columns[1:] {
		suffix += fmt.Sprintf(", %[1]s = EXCLUDED.%[1]s", c)
	}

	query, args, err := psql.Insert("profiles").Columns(columns...).Values(values...).Suffix(suffix).ToSql()
	if err != nil {
		return apperror.NewInternal("failed to build profile merge", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return apperror.NewInternal("failed to merge profile", err)
	}
	return nil
}

func (r *postgresProfileStore) SetArrayField(ctx context.Context, ownerID string, field profile.Field, items any) error {
	if !field.Valid() {
		return apperror.NewInvalidInput(string(field), profile.ErrUnknownField)
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return apperror.NewInternal("failed to marshal "+string(field), err)
	}

	query, args, err := psql.
		Insert("profiles").
		Columns("owner_id", string(field)).
		Values(ownerID, sq.Expr("?::jsonb", string(raw))).
		Suffix(fmt.Sprintf("ON CONFLICT (owner_id) DO UPDATE SET %[1]s = EXCLUDED.%[1]s, updated_at = NOW()", field)).
		ToSql()
	if err != nil {
		return apperror.NewInternal("failed to build section overwrite", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return apperror.NewInternal("failed to overwrite "+string(field), err)
	}
	return nil
}

// UnionAppend appends item unless the array already contains it.
func (r *postgresProfileStore) UnionAppend(ctx context.Context, ownerID string, field profile.Field, item any) error {
	if !field.Valid() {
		return apperror.NewInvalidInput(string(field), profile.ErrUnknownField)
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return apperror.NewInternal("failed to marshal "+string(field)+" item", err)
	}

	query, args, err := psql.
		Insert("profiles").
		Columns("owner_id", string(field)).
		Values(ownerID, sq.Expr("jsonb_build_array(?::jsonb)", string(raw))).
		Suffix(fmt.Sprintf(`ON CONFLICT (owner_id) DO UPDATE SET
			%[1]s = CASE WHEN profiles.%[1]s @> EXCLUDED.%[1]s THEN profiles.%[1]s ELSE profiles.%[1]s || EXCLUDED.%[1]s END,
			updated_at = NOW()`, field)).
		ToSql()
	if err != nil {
		return apperror.NewInternal("failed to build section append", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return apperror.NewInternal("failed to append to "+string(field), err)
	}
	return nil
}

// RemoveByKey drops the elements whose id equals key. Skills are matched by value.
func (r *postgresProfileStore) RemoveByKey(ctx context.Context, ownerID string, field profile.Field, key string) error {
	if !field.Valid() {
		return apperror.NewInvalidInput(string(field), profile.ErrUnknownField)
	}
	keyExpr := "e ->> 'id'"
	if field == profile.FieldSkills {
		keyExpr = "e #>> '{}'"
	}

	remaining := fmt.Sprintf(`COALESCE((
		SELECT jsonb_agg(e ORDER BY i)
		FROM jsonb_array_elements(%s) WITH ORDINALITY AS t(e, i)
		WHERE %s IS DISTINCT FROM ?
	), '[]'::jsonb)`, field, keyExpr)

	query, args, err := psql.
		Update("profiles").
		Set(string(field), sq.Expr(remaining, key)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"owner_id": ownerID}).
		ToSql()
	if err != nil {
		return apperror.NewInternal("failed to build section removal", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return apperror.NewInternal("failed to remove from "+string(field), err)
	}
	return nil
}
