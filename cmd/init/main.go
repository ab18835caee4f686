package main

import (
	"context"
	"fmt"
	"strings"

	"printshop-backend/infra"
	"printshop-backend/model"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Options struct {
	Config        string `help:"設定檔路徑" short:"c" default:"config.yml"`
	AdminName     string `help:"初始管理者姓名" default:"Manager"`
	AdminEmail    string `help:"初始管理者 email，空值則不建立" default:""`
	AdminPassword string `help:"初始管理者密碼" default:""`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		hooks.OnStart(func() {
			infra.InitLogger("info")
			if err := infra.LoadConfig(opts.Config); err != nil {
				log.Fatal().Err(err).Str("path", opts.Config).Msg("❌ 讀取設定檔失敗")
			}

			mongoDB, err := infra.NewMongoDB(infra.MongoConfig{
				URI:      infra.AppConfig.MongoDB.URI,
				Database: infra.AppConfig.MongoDB.Database,
			})
			if err != nil {
				log.Fatal().Err(err).Msg("❌ 連接 MongoDB 失敗")
			}
			ctx := context.Background()
			defer mongoDB.Close(ctx)

			fmt.Println("🚀 開始建立 MongoDB 索引...")
			if err := createIndexes(ctx, mongoDB); err != nil {
				log.Fatal().Err(err).Msg("❌ 創建索引失敗")
			}

			if opts.AdminEmail != "" {
				if err := seedManager(ctx, mongoDB, opts.AdminName, opts.AdminEmail, opts.AdminPassword); err != nil {
					log.Fatal().Err(err).Msg("❌ 建立管理者失敗")
				}
			}

			printIndexInfo(ctx, mongoDB)
			fmt.Println("✅ 初始化完成")
		})
	})
	cli.Run()
}

func createIndexes(ctx context.Context, mongoDB *infra.MongoDB) error {
	// 建單時以 (name, phone, countryCode) 去重，唯一索引讓並發寫入也不會重複
	customerIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "name", Value: 1},
				{Key: "phone", Value: 1},
				{Key: "countryCode", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("unique_customer_identity"),
		},
	}
	if err := createIndexesSafely(ctx, mongoDB.GetCollection(infra.CollectionCustomers), customerIndexes, infra.CollectionCustomers); err != nil {
		return err
	}

	orderIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("order_created_at"),
		},
		{
			Keys:    bson.D{{Key: "progress", Value: 1}},
			Options: options.Index().SetName("order_progress"),
		},
		{
			Keys:    bson.D{{Key: "phone_number", Value: 1}},
			Options: options.Index().SetName("order_phone_number"),
		},
	}
	if err := createIndexesSafely(ctx, mongoDB.GetCollection(infra.CollectionOrders), orderIndexes, infra.CollectionOrders); err != nil {
		return err
	}

	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_user_email"),
		},
	}
	return createIndexesSafely(ctx, mongoDB.GetCollection(infra.CollectionUsers), userIndexes, infra.CollectionUsers)
}

// createIndexesSafely 逐一建立，已存在或資料重複時跳過
func createIndexesSafely(ctx context.Context, collection *mongo.Collection, indexes []mongo.IndexModel, collectionName string) error {
	for _, index := range indexes {
		name := "(unnamed)"
		if index.Options != nil && index.Options.Name != nil {
			name = *index.Options.Name
		}

		_, err := collection.Indexes().CreateOne(ctx, index)
		if err == nil {
			fmt.Printf("   ✅ %s.%s 創建成功\n", collectionName, name)
			continue
		}
		if mongo.IsDuplicateKeyError(err) ||
			strings.Contains(err.Error(), "IndexOptionsConflict") ||
			strings.Contains(err.Error(), "already exists") {
			fmt.Printf("   ⚠️  %s.%s 存在衝突，跳過創建 (可能已存在或資料重複)\n", collectionName, name)
			continue
		}
		return fmt.Errorf("創建 %s 索引失敗: %w", collectionName, err)
	}
	return nil
}

// seedManager 依 email 建立 manager，已存在則不變
func seedManager(ctx context.Context, mongoDB *infra.MongoDB, name, email, password string) error {
	if password == "" {
		return fmt.Errorf("缺少 --admin-password")
	}
	doc := model.User{Name: name, Email: email, Password: password, Role: model.RoleManager}
	res, err := mongoDB.GetCollection(infra.CollectionUsers).UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return err
	}
	if res.UpsertedCount > 0 {
		fmt.Printf("👤 已建立管理者 %s\n", email)
	} else {
		fmt.Printf("👤 管理者 %s 已存在，略過\n", email)
	}
	return nil
}

func printIndexInfo(ctx context.Context, mongoDB *infra.MongoDB) {
	fmt.Println("\n📊 索引報告:")
	fmt.Println(strings.Repeat("=", 60))
	for _, collName := range []string{infra.CollectionCustomers, infra.CollectionOrders, infra.CollectionUsers} {
		cursor, err := mongoDB.GetCollection(collName).Indexes().List(ctx)
		if err != nil {
			continue
		}
		var indexes []bson.M
		if err := cursor.All(ctx, &indexes); err != nil {
			continue
		}
		fmt.Printf("📁 %s: %d 個索引\n", collName, len(indexes))
		for i, index := range indexes {
			unique := ""
			if u, ok := index["unique"].(bool); ok && u {
				unique = " [UNIQUE]"
			}
			fmt.Printf("   %d. %v%s\n", i+1, index["name"], unique)
		}
	}
	fmt.Println(strings.Repeat("=", 60))
}
