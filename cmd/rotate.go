package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mintbay/go-mintbay-server/global"
	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/types"
	"github.com/mintbay/go-mintbay-server/util"
	"github.com/spf13/cobra"
)

var rotateConfigFile string

func init() {
	rotateCmd.Flags().StringVarP(&rotateConfigFile, "config", "c", "conf.yaml", "configuration file path")
	rootCmd.AddCommand(rotateCmd)
}

// rotateCmd provisions the next key version in CouchDB and archives the
// previously active keys. Running servers pick the new version up when their
// key cache expires.
var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate the active encryption key",
	Long:  "Write a new active key version to CouchDB and archive the previous one",
	Run: func(cmd *cobra.Command, args []string) {
		err := global.LoadConfig(rotateConfigFile, &global.Conf)
		check(err)

		repoUrl := global.Conf.CouchDB.Scheme + "://" + global.Conf.CouchDB.Host + ":" + strconv.Itoa(global.Conf.CouchDB.Port)
		keyRepo, repoErr := repository.NewCouchDBRepository(repoUrl, repository.CryptoKeys, global.Conf.CouchDB.Username, global.Conf.CouchDB.Password, false)
		check(repoErr)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()

		response, fErr := keyRepo.Find(ctx, map[string]interface{}{
			"selector": map[string]interface{}{
				"version": map[string]interface{}{
					"$gte": 0,
				},
			},
			"limit": 100,
		})
		check(fErr)

		var existing []types.CryptoKey
		check(repository.MapToFindResults(response, &existing))

		nextVersion := 1
		for _, k := range existing {
			if k.Version >= nextVersion {
				nextVersion = k.Version + 1
			}
		}

		material, gErr := util.GenerateKeyMaterial(32)
		check(gErr)

		newKey := types.CryptoKey{
			Version:  nextVersion,
			Material: material,
			Status:   types.KeyStatusActive,
			Created:  time.Now().UnixMilli(),
		}
		docID := fmt.Sprintf("key_%d", nextVersion)
		check(keyRepo.Save(ctx, docID, &newKey))

		// archive the superseded keys, the new version owns encryption now
		for i := range existing {
			if existing[i].Status != types.KeyStatusActive {
				continue
			}
			existing[i].Status = types.KeyStatusArchived
			id := existing[i].UnderscoreID
			if id == "" {
				id = existing[i].ID
			}
			check(keyRepo.Update(ctx, id, &existing[i]))
		}

		fmt.Printf("Rotated encryption key to version %d\n", nextVersion)
	},
}
