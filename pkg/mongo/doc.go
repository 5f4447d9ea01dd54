// Package mongo provides MongoDB connection management for memkeep.
//
// Subscription records and analytics events live in MongoDB. This package owns
// connecting (with retries and a ping per attempt), health checks and a couple
// of error classifiers shared by the stores built on top of
// go.mongodb.org/mongo-driver/v2.
//
// # Usage
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	store := subscription.NewMongoStore(db.Collection("subscriptions"))
package mongo
