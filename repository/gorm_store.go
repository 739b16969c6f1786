package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cppla/miniblog/models"
)

// GormStore implements Store on a relational database.
type GormStore struct {
	db   *gorm.DB
	opts options
}

// NewGormStore creates a GormStore over an opened and migrated database.
func NewGormStore(db *gorm.DB, opts ...Option) *GormStore {
	return &GormStore{db: db, opts: newOptions(opts)}
}

func (s *GormStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	accounts := []models.Account{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&accounts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return accounts, nil
}

func (s *GormStore) CreateAccount(ctx context.Context, in AccountInput) (*models.Account, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if count > 0 {
		return nil, errAccountTaken()
	}
	account := models.Account{Username: in.Username, Password: in.Password, Avatar: in.Avatar}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errAccountTaken()
		}
		return nil, models.NewInternalError(err)
	}
	return &account, nil
}

func (s *GormStore) VerifyCredentials(ctx context.Context, username, password string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errBadCredentials()
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !passwordMatches(account.Password, password) {
		return nil, errBadCredentials()
	}
	return &account, nil
}

func (s *GormStore) withComments(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	})
}

func (s *GormStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	posts := []models.Post{}
	if err := s.withComments(s.db.WithContext(ctx)).Order("created_at DESC, id DESC").Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range posts {
		ensureComments(&posts[i])
	}
	return posts, nil
}

func (s *GormStore) GetPost(ctx context.Context, id uint64) (*models.Post, error) {
	var post models.Post
	err := s.withComments(s.db.WithContext(ctx)).First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("post", id)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	ensureComments(&post)
	return &post, nil
}

func (s *GormStore) CreatePost(ctx context.Context, in PostInput) (*models.Post, error) {
	post := models.Post{
		Title:    in.Title,
		Body:     in.Body,
		Author:   in.Author,
		Category: s.opts.categoryOrDefault(in.Category),
	}
	if err := s.db.WithContext(ctx).Omit("Comments").Create(&post).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	ensureComments(&post)
	return &post, nil
}

func (s *GormStore) UpdatePost(ctx context.Context, id uint64, in PostInput) (*models.Post, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("post", id)
			}
			return err
		}
		return tx.Model(&post).Updates(map[string]interface{}{
			"title":    in.Title,
			"body":     in.Body,
			"category": s.opts.categoryOrDefault(in.Category),
		}).Error
	})
	if err != nil {
		return nil, wrapTxError(err)
	}
	return s.GetPost(ctx, id)
}

func (s *GormStore) DeletePost(ctx context.Context, id uint64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("post", id)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("post_id = ?", id).Delete(&models.Like{}).Error
	})
	return wrapTxError(err)
}

func (s *GormStore) CreateComment(ctx context.Context, in CommentInput) (*models.Comment, error) {
	comment := models.Comment{PostID: in.PostID, Author: in.Author, Text: in.Text}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("id = ?", in.PostID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return models.NewNotFoundError("post", in.PostID)
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, wrapTxError(err)
	}
	return &comment, nil
}

func (s *GormStore) LikePost(ctx context.Context, postID uint64, username string) (int, error) {
	var likes int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("post", postID)
			}
			return err
		}
		var existing int64
		if err := tx.Model(&models.Like{}).Where("post_id = ? AND username = ?", postID, username).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return errAlreadyLiked()
		}
		if err := tx.Create(&models.Like{PostID: postID, Username: username}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errAlreadyLiked()
			}
			return err
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("likes", gorm.Expr("likes + ?", 1)).Error; err != nil {
			return err
		}
		if err := tx.Select("likes").First(&post, postID).Error; err != nil {
			return err
		}
		likes = post.Likes
		return nil
	})
	if err != nil {
		return 0, wrapTxError(err)
	}
	return likes, nil
}

func (s *GormStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx)
	for _, c := range []struct {
		model interface{}
		dst   *int64
	}{
		{&models.Account{}, &st.Accounts},
		{&models.Post{}, &st.Posts},
		{&models.Comment{}, &st.Comments},
		{&models.Like{}, &st.Likes},
	} {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return Stats{}, models.NewInternalError(err)
		}
	}
	return st, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return models.NewStoreUnavailableError(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return models.NewStoreUnavailableError(err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureComments(p *models.Post) {
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}
}

// wrapTxError keeps AppErrors raised inside a transaction and wraps anything else.
func wrapTxError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return models.NewInternalError(err)
}
