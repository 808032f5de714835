// Package store is the gorm-backed persistence collaborator for the identity
// engine: users, role assignments, password reset tokens and customer
// addresses. It translates driver errors into the engine's sentinel taxonomy
// so callers never see gorm types.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/championsworld/identity"
)

// Store implements the engine's UserStore, RoleStore, ResetTokenStore and
// AddressStore interfaces over one gorm connection.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

var (
	_ identity.UserStore       = (*Store)(nil)
	_ identity.RoleStore       = (*Store)(nil)
	_ identity.ResetTokenStore = (*Store)(nil)
	_ identity.AddressStore    = (*Store)(nil)
)

// Open connects, migrates the schema and seeds the role table. dbType is
// "sqlite" or "postgres".
func Open(dbType, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch dbType {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbType, err)
	}

	if err := db.AutoMigrate(&User{}, &Role{}, &UserRole{}, &PasswordResetToken{}, &Address{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.seedRoles(); err != nil {
		return nil, err
	}

	log.Info("store ready", zap.String("type", dbType))
	return s, nil
}

func (s *Store) seedRoles() error {
	for _, name := range []string{identity.RoleCustomer, identity.RoleAdmin, identity.RoleSuperAdmin} {
		err := s.db.Where(Role{Name: name}).FirstOrCreate(&Role{Name: name}).Error
		if err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	return nil
}

func strPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func toRecord(u User) identity.UserRecord {
	return identity.UserRecord{
		ID:             u.ID,
		Email:          strVal(u.Email),
		Mobile:         strVal(u.Mobile),
		PasswordHash:   u.PasswordHash,
		Active:         u.Active,
		Provider:       u.Provider,
		ProviderID:     u.ProviderID,
		MobileVerified: u.MobileVerified,
	}
}

// ---- UserStore ----

func (s *Store) CreateUser(ctx context.Context, rec *identity.UserRecord) error {
	row := User{
		Email:          strPtr(rec.Email),
		Mobile:         strPtr(rec.Mobile),
		PasswordHash:   rec.PasswordHash,
		Active:         rec.Active,
		Provider:       rec.Provider,
		ProviderID:     rec.ProviderID,
		MobileVerified: rec.MobileVerified,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return identity.ErrUserAlreadyExists
		}
		return err
	}
	rec.ID = row.ID
	return nil
}

func (s *Store) userBy(ctx context.Context, query string, arg any) (identity.UserRecord, error) {
	var row User
	err := s.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return identity.UserRecord{}, identity.ErrUserNotFound
		}
		return identity.UserRecord{}, err
	}
	return toRecord(row), nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (identity.UserRecord, error) {
	return s.userBy(ctx, "id = ?", id)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (identity.UserRecord, error) {
	return s.userBy(ctx, "email = ?", email)
}

func (s *Store) UserByMobile(ctx context.Context, mobile string) (identity.UserRecord, error) {
	return s.userBy(ctx, "mobile = ?", mobile)
}

func (s *Store) existsBy(ctx context.Context, query string, arg any) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&User{}).Where(query, arg).Count(&count).Error
	return count > 0, err
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.existsBy(ctx, "email = ?", email)
}

func (s *Store) MobileExists(ctx context.Context, mobile string) (bool, error) {
	return s.existsBy(ctx, "mobile = ?", mobile)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]identity.AdminSummary, error) {
	var out []identity.AdminSummary
	err := s.db.WithContext(ctx).Model(&User{}).
		Select("users.id, users.email, users.active, roles.name as role").
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ?", identity.RoleAdmin).
		Order("users.id").
		Scan(&out).Error
	return out, err
}

// ---- RoleStore ----

func (s *Store) roleID(ctx context.Context, name string) (int64, error) {
	var role Role
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, identity.ErrRoleNotFound
		}
		return 0, err
	}
	return role.ID, nil
}

// AssignRole replaces any existing assignment for the user.
func (s *Store) AssignRole(ctx context.Context, userID int64, roleName string) error {
	roleID, err := s.roleID(ctx, roleName)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&UserRole{}).Error; err != nil {
			return err
		}
		return tx.Create(&UserRole{UserID: userID, RoleID: roleID}).Error
	})
}

func (s *Store) RoleOf(ctx context.Context, userID int64) (string, error) {
	var name string
	err := s.db.WithContext(ctx).Model(&UserRole{}).
		Select("roles.name").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ?", userID).
		Scan(&name).Error
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", identity.ErrRoleNotFound
	}
	return name, nil
}

func (s *Store) HasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	name, err := s.RoleOf(ctx, userID)
	if errors.Is(err, identity.ErrRoleNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return name == roleName, nil
}

func (s *Store) RemoveRole(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&UserRole{}).Error
}

// ---- ResetTokenStore ----

func (s *Store) CreateResetToken(ctx context.Context, rec *identity.ResetRecord) error {
	row := PasswordResetToken{
		UserID:    rec.UserID,
		CodeHash:  append([]byte(nil), rec.CodeHash[:]...),
		ExpiresAt: rec.ExpiresAt,
		Used:      rec.Used,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	rec.ID = row.ID
	rec.CreatedAt = row.CreatedAt
	return nil
}

func (s *Store) LatestResetToken(ctx context.Context, userID int64) (identity.ResetRecord, error) {
	var row PasswordResetToken
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return identity.ResetRecord{}, identity.ErrResetTokenNotFound
		}
		return identity.ResetRecord{}, err
	}

	rec := identity.ResetRecord{
		ID:        row.ID,
		UserID:    row.UserID,
		ExpiresAt: row.ExpiresAt,
		Used:      row.Used,
		CreatedAt: row.CreatedAt,
	}
	copy(rec.CodeHash[:], row.CodeHash)
	return rec, nil
}

// ConsumeResetToken flips used to true with a conditional update, so exactly
// one of any number of concurrent consumers succeeds.
func (s *Store) ConsumeResetToken(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Model(&PasswordResetToken{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return identity.ErrResetTokenInvalid
	}
	return nil
}

// ---- AddressStore ----

func toAddressRow(a identity.AddressRecord) Address {
	return Address{
		ID:            a.ID,
		UserID:        a.UserID,
		Label:         a.Label,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		ContactNumber: a.ContactNumber,
		Email:         a.Email,
		Line1:         a.Line1,
		Line2:         a.Line2,
		City:          a.City,
		State:         a.State,
		Pincode:       a.Pincode,
		Country:       a.Country,
		IsDefault:     a.Default,
	}
}

func toAddressRecord(a Address) identity.AddressRecord {
	return identity.AddressRecord{
		ID:            a.ID,
		UserID:        a.UserID,
		Label:         a.Label,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		ContactNumber: a.ContactNumber,
		Email:         a.Email,
		Line1:         a.Line1,
		Line2:         a.Line2,
		City:          a.City,
		State:         a.State,
		Pincode:       a.Pincode,
		Country:       a.Country,
		Default:       a.IsDefault,
	}
}

func (s *Store) CreateAddress(ctx context.Context, rec *identity.AddressRecord) error {
	row := toAddressRow(*rec)
	row.ID = 0
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	rec.ID = row.ID
	return nil
}

func (s *Store) AddressByID(ctx context.Context, id int64) (identity.AddressRecord, error) {
	var row Address
	err := s.db.WithContext(ctx).First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return identity.AddressRecord{}, identity.ErrAddressNotFound
		}
		return identity.AddressRecord{}, err
	}
	return toAddressRecord(row), nil
}

func (s *Store) AddressesByUser(ctx context.Context, userID int64) ([]identity.AddressRecord, error) {
	var rows []Address
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]identity.AddressRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toAddressRecord(row))
	}
	return out, nil
}

func (s *Store) UpdateAddress(ctx context.Context, rec *identity.AddressRecord) error {
	row := toAddressRow(*rec)
	res := s.db.WithContext(ctx).Model(&Address{}).
		Where("id = ?", row.ID).
		Select("label", "first_name", "last_name", "contact_number", "email",
			"line1", "line2", "city", "state", "pincode", "country", "is_default").
		Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return identity.ErrAddressNotFound
	}
	return nil
}

func (s *Store) DeleteAddress(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&Address{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return identity.ErrAddressNotFound
	}
	return nil
}

func (s *Store) HasAddresses(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Address{}).
		Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (s *Store) ClearDefault(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Model(&Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}
