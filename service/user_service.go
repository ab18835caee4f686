package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"printshop-backend/infra"
	"printshop-backend/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRoleNotAllowed     = errors.New("role not allowed to manage orders")
	ErrUserNotFound       = errors.New("user not found")
)

// UserLookup 使用者查詢
type UserLookup interface {
	FindByCredentials(ctx context.Context, email, password string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// MongoUserLookup 查詢 users 集合
type MongoUserLookup struct {
	mongoDB *infra.MongoDB
}

func NewMongoUserLookup(mongoDB *infra.MongoDB) *MongoUserLookup {
	return &MongoUserLookup{mongoDB: mongoDB}
}

func (l *MongoUserLookup) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	raw, err := l.mongoDB.GetCollection(infra.CollectionUsers).FindOne(ctx, filter).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查詢用戶失敗: %w", err)
	}
	var user model.User
	if err := bson.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("用戶資料解碼失敗: %w", err)
	}
	user.ID, _ = infra.RecordID(raw)
	return &user, nil
}

// FindByCredentials 明文比對 email 與密碼
func (l *MongoUserLookup) FindByCredentials(ctx context.Context, email, password string) (*model.User, error) {
	return l.findOne(ctx, bson.M{"email": email, "password": password})
}

// FindByID 支援字串 key 與 ObjectID
func (l *MongoUserLookup) FindByID(ctx context.Context, id string) (*model.User, error) {
	ids := bson.A{id}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		ids = append(ids, oid)
	}
	return l.findOne(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

type UserService struct {
	logger          zerolog.Logger
	users           UserLookup
	jwtSecretKey    string
	jwtExpiresHours int
}

func NewUserService(logger zerolog.Logger, users UserLookup, jwtSecretKey string, jwtExpiresHours int) *UserService {
	return &UserService{
		logger:          logger.With().Str("module", "user_service").Logger(),
		users:           users,
		jwtSecretKey:    jwtSecretKey,
		jwtExpiresHours: jwtExpiresHours,
	}
}

// Login 驗證帳密與角色，僅 manager 與 sudo 可取得 token
func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.users.FindByCredentials(ctx, email, password)
	if err != nil {
		s.logger.Warn().Str("email", email).Err(err).Msg("用戶登入失敗 - 帳號或密碼錯誤 (Login failed)")
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !user.Role.CanManageOrders() {
		s.logger.Warn().Str("email", email).Str("role", string(user.Role)).Msg("用戶角色無訂單權限 (Role not allowed)")
		return nil, "", ErrRoleNotAllowed
	}

	token, err := s.IssueToken(user)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("用戶 JWT 令牌生成失敗")
		return nil, "", err
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("用戶登入成功 (Login succeeded)")
	return user, token, nil
}

// IssueToken 簽發 HS256 token
func (s *UserService) IssueToken(user *model.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
		"type":    string(model.TokenTypeUser),
		"exp":     time.Now().Add(time.Hour * time.Duration(s.jwtExpiresHours)).Unix(),
	})
	return token.SignedString([]byte(s.jwtSecretKey))
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.FindByID(ctx, id)
}
