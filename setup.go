package main

import (
	"context"
	"errors"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mintbay/go-mintbay-server/global"
	"github.com/mintbay/go-mintbay-server/ratelimit"
	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/services"
	"github.com/mintbay/go-mintbay-server/types"
	"github.com/redis/go-redis/v9"
)

// Configure DB Repositories and create DB Selector
func ConfigDBSelector() repository.DBSelector {
	repoUrl := global.Conf.CouchDB.Scheme + "://" + global.Conf.CouchDB.Host + ":" + strconv.Itoa(global.Conf.CouchDB.Port)
	userRepo, userRepoErr := repository.NewCouchDBRepository(repoUrl, repository.Users, global.Conf.CouchDB.Username, global.Conf.CouchDB.Password, false)
	walletRepo, walletRepoErr := repository.NewCouchDBRepository(repoUrl, repository.Wallets, global.Conf.CouchDB.Username, global.Conf.CouchDB.Password, false)
	transactionRepo, txRepoErr := repository.NewCouchDBRepository(repoUrl, repository.Transactions, global.Conf.CouchDB.Username, global.Conf.CouchDB.Password, false)
	cryptoKeyRepo, keyRepoErr := repository.NewCouchDBRepository(repoUrl, repository.CryptoKeys, global.Conf.CouchDB.Username, global.Conf.CouchDB.Password, false)
	nonceRepo, nonceRepoErr := repository.NewCouchDBRepository(repoUrl, repository.Nonce, global.Conf.CouchDB.Username, global.Conf.CouchDB.Password, false)
	listingRepo, listingRepoErr := repository.NewCouchDBRepository(repoUrl, repository.Listings, global.Conf.CouchDB.Username, global.Conf.CouchDB.Password, false)

	repoErr := errors.Join(userRepoErr, walletRepoErr, txRepoErr, keyRepoErr, nonceRepoErr, listingRepoErr)
	if repoErr != nil {
		global.Logger.Log("error", "Failed to create repositories", "error", repoErr.Error())
		panic(repoErr)
	}

	// REPOSITORY definitions
	dbSelector := repository.NewCouchDBSelector()
	dbSelector.AddDB(userRepo)
	dbSelector.AddDB(walletRepo)
	dbSelector.AddDB(transactionRepo)
	dbSelector.AddDB(cryptoKeyRepo)
	dbSelector.AddDB(nonceRepo)
	dbSelector.AddDB(listingRepo)

	return dbSelector
}

// ConfigCronJobs schedules the recurring maintenance work. The key service is
// the same instance the request path reads, so the cron refresh warms the cache
// handlers actually use.
func ConfigCronJobs(dbSelector *repository.CouchDBSelector, environment *types.Environment, keyService *services.CryptoKeyService) {
	nonceService := services.NewNonceService(dbSelector)

	// remove expired login challenges every 5 minutes
	environment.Cron.AddFunc("@every 5m", nonceService.RemoveExpiredNonces)
	// keep the key cache warm so rotations propagate without request latency
	environment.Cron.AddFunc("@every 5m", func() {
		if _, err := keyService.Refresh(); err != nil {
			global.Logger.Log("error", "failed to refresh encryption keys", "error", err.Error())
		}
	})
	environment.Cron.Start()
	go nonceService.RemoveExpiredNonces() // run once on startup
}

// ConfigRateLimiter builds the policy limiter backed by redis with a
// transparent in-memory fallback for redis outages
func ConfigRateLimiter(redisClient *redis.Client) *ratelimit.Limiter {
	primary := ratelimit.NewRedisCounterStore(redisClient)
	fallback := ratelimit.NewMemoryCounterStore()
	return ratelimit.NewLimiter(ratelimit.NewFallbackCounterStore(primary, fallback))
}

func ConfigS3Storage(conf *global.Config, env *types.Environment) {
	// configure S3 storage
	credentials := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(conf.Storage.Key, conf.Storage.Secret, ""))
	awsConf, err := config.LoadDefaultConfig(context.TODO(), config.WithCredentialsProvider(credentials), config.WithRegion(conf.Storage.Region))
	if err != nil {
		panic(err)
	}
	s3Client := s3.NewFromConfig(awsConf)
	uploader := manager.NewUploader(s3Client)

	env.S3Client = s3Client
	env.S3Uploader = uploader
}
