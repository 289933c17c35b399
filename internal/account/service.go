// Package account 把外部身份断言映射为本地账号，并提供资料维护。
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/markbates/goth"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"portify/internal/database"
	"portify/internal/errcode"
)

// Assertion 是身份提供方验证过的用户信息。
type Assertion struct {
	SubjectID   string
	Email       string
	DisplayName string
	AvatarURL   string
}

// AssertionFromGoth 从 goth 回调结果提取断言；Google 未返回姓名时退回邮箱。
func AssertionFromGoth(u goth.User) Assertion {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	if name == "" {
		name = u.Email
	}
	return Assertion{
		SubjectID:   u.UserID,
		Email:       strings.ToLower(strings.TrimSpace(u.Email)),
		DisplayName: name,
		AvatarURL:   u.AvatarURL,
	}
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ResolveOrProvision 按 google_id 查找账号，不存在时创建。
// 并发首次登录由唯一索引兜底：插入冲突时改为读取已存在的记录。
func (s *Service) ResolveOrProvision(ctx context.Context, a Assertion) (*database.Account, error) {
	if strings.TrimSpace(a.SubjectID) == "" || strings.TrimSpace(a.Email) == "" {
		return nil, errcode.InvalidInput.WithMessage("Identity assertion is missing subject or email")
	}

	acc, err := s.findByGoogleID(ctx, a.SubjectID)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup account by subject: %w", err)
	}

	created := database.Account{
		GoogleID:    a.SubjectID,
		Email:       a.Email,
		Name:        a.DisplayName,
		Avatar:      a.AvatarURL,
		Role:        database.RoleUser,
		ProfileData: datatypes.NewJSONType[*database.ProfileData](nil),
	}
	if err := s.db.WithContext(ctx).Create(&created).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("provision account: %w", err)
		}
		existing, findErr := s.findByGoogleID(ctx, a.SubjectID)
		if findErr == nil {
			return existing, nil
		}
		// 冲突来自 email：同一邮箱已绑定到另一个 Google 账号。
		return nil, errcode.DuplicateEmail.Wrap(err)
	}
	return &created, nil
}

func (s *Service) findByGoogleID(ctx context.Context, subject string) (*database.Account, error) {
	var acc database.Account
	if err := s.db.WithContext(ctx).Where("google_id = ?", subject).First(&acc).Error; err != nil {
		return nil, err
	}
	return &acc, nil
}

// Get 读取账号。
func (s *Service) Get(ctx context.Context, id uint) (*database.Account, error) {
	var acc database.Account
	if err := s.db.WithContext(ctx).First(&acc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.AccountNotFound
		}
		return nil, fmt.Errorf("get account %d: %w", id, err)
	}
	return &acc, nil
}

// GetByEmail 供管理命令按邮箱定位账号。
func (s *Service) GetByEmail(ctx context.Context, email string) (*database.Account, error) {
	var acc database.Account
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&acc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.AccountNotFound
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return &acc, nil
}

// RoleOf 返回账号当前角色，管理员校验每次都读库，角色变更立即生效。
func (s *Service) RoleOf(ctx context.Context, id uint) (string, error) {
	var acc database.Account
	if err := s.db.WithContext(ctx).Select("id", "role").First(&acc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errcode.AccountNotFound
		}
		return "", fmt.Errorf("load role for %d: %w", id, err)
	}
	return acc.Role, nil
}

// ProfileUpdate 对应 PUT /users/profile。
type ProfileUpdate struct {
	ProfileData         *database.ProfileData `json:"profileData"`
	OnboardingCompleted *bool                 `json:"onboardingCompleted"`
}

// UpdateProfile 只写入请求中出现的字段。
func (s *Service) UpdateProfile(ctx context.Context, id uint, in ProfileUpdate) (*database.Account, error) {
	updates := map[string]any{}
	if in.ProfileData != nil {
		updates["profile_data"] = datatypes.NewJSONType(in.ProfileData)
	}
	if in.OnboardingCompleted != nil {
		updates["onboarding_completed"] = *in.OnboardingCompleted
	}
	return s.apply(ctx, id, updates)
}

// AccountUpdate 对应 PUT /users/:id。
type AccountUpdate struct {
	Name                *string               `json:"name" binding:"omitempty,min=1,max=100"`
	Email               *string               `json:"email" binding:"omitempty,email"`
	Avatar              *string               `json:"avatar" binding:"omitempty,url"`
	ProfileData         *database.ProfileData `json:"profileData"`
	OnboardingCompleted *bool                 `json:"onboardingCompleted"`
}

// UpdateAccount 允许本人或管理员修改账号信息。
func (s *Service) UpdateAccount(ctx context.Context, callerID, targetID uint, in AccountUpdate) (*database.Account, error) {
	if err := s.authorizeSelfOrAdmin(ctx, callerID, targetID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Avatar != nil {
		updates["avatar"] = *in.Avatar
	}
	if in.ProfileData != nil {
		updates["profile_data"] = datatypes.NewJSONType(in.ProfileData)
	}
	if in.OnboardingCompleted != nil {
		updates["onboarding_completed"] = *in.OnboardingCompleted
	}
	return s.apply(ctx, targetID, updates)
}

// SetRole 允许本人或管理员调用，但只有管理员能授予 admin。
func (s *Service) SetRole(ctx context.Context, callerID, targetID uint, role string) (*database.Account, error) {
	if role != database.RoleUser && role != database.RoleAdmin {
		return nil, errcode.InvalidInput.WithMessage(fmt.Sprintf("Unknown role %q", role))
	}
	callerRole, err := s.RoleOf(ctx, callerID)
	if err != nil {
		if errors.Is(err, errcode.AccountNotFound) {
			return nil, errcode.Unauthorized
		}
		return nil, err
	}
	if callerRole != database.RoleAdmin {
		if callerID != targetID || role == database.RoleAdmin {
			return nil, errcode.Forbidden
		}
	}
	return s.apply(ctx, targetID, map[string]any{"role": role})
}

// SetAvatar 同步更新账号头像与草稿资料中的头像。
func (s *Service) SetAvatar(ctx context.Context, id uint, url string) (*database.Account, error) {
	var out *database.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acc database.Account
		if err := tx.First(&acc, id).Error; err != nil {
			return err
		}
		profile := acc.ProfileData.Data()
		if profile == nil {
			profile = &database.ProfileData{}
		}
		if profile.PersonalInfo == nil {
			profile.PersonalInfo = &database.DraftPersonalInfo{}
		}
		profile.PersonalInfo.Avatar = url

		if err := tx.Model(&acc).Updates(map[string]any{
			"avatar":       url,
			"profile_data": datatypes.NewJSONType(profile),
		}).Error; err != nil {
			return err
		}
		out = &acc
		return tx.First(out, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.AccountNotFound
		}
		return nil, fmt.Errorf("set avatar for %d: %w", id, err)
	}
	return out, nil
}

// OnboardingStatus 返回是否已完成引导。
func (s *Service) OnboardingStatus(ctx context.Context, id uint) (bool, error) {
	acc, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return acc.OnboardingCompleted, nil
}

func (s *Service) authorizeSelfOrAdmin(ctx context.Context, callerID, targetID uint) error {
	if callerID == targetID {
		return nil
	}
	role, err := s.RoleOf(ctx, callerID)
	if err != nil {
		if errors.Is(err, errcode.AccountNotFound) {
			return errcode.Unauthorized
		}
		return err
	}
	if role != database.RoleAdmin {
		return errcode.Forbidden
	}
	return nil
}

func (s *Service) apply(ctx context.Context, id uint, updates map[string]any) (*database.Account, error) {
	if len(updates) == 0 {
		return s.Get(ctx, id)
	}
	res := s.db.WithContext(ctx).Model(&database.Account{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, errcode.DuplicateEmail.Wrap(res.Error)
		}
		return nil, fmt.Errorf("update account %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errcode.AccountNotFound
	}
	return s.Get(ctx, id)
}
