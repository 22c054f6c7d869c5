package cmd

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"massnet.org/mass-secretstore/logging"
)

type addressInfo struct {
	Address   string `json:"address"`
	WatchOnly bool   `json:"watch_only"`
	XRandom   bool   `json:"xrandom"`
	Trashed   bool   `json:"trashed"`
	Synced    bool   `json:"synced"`
	SortTime  string `json:"sort_time"`
}

type hdSeedInfo struct {
	ID           int    `json:"hd_seed_id"`
	FirstAddress string `json:"first_address"`
	XRandom      bool   `json:"xrandom"`
	Recovered    bool   `json:"recovered"`
	HasHDSeed    bool   `json:"has_hd_seed"`
}

type hdmAddressInfo struct {
	Index   int    `json:"index"`
	Address string `json:"address"`
	Synced  bool   `json:"synced"`
}

type hdmStatus struct {
	HDSeedID        int               `json:"hd_seed_id"`
	FirstAddress    string            `json:"first_address"`
	MaxIndex        int               `json:"max_index"`
	UncompletedPubs int               `json:"uncompleted_pubs"`
	InUse           []*hdmAddressInfo `json:"in_use"`
}

var listAddressesCmd = &cobra.Command{
	Use:   "list-addresses",
	Short: "Lists the addresses of the secret store, most recent first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.VPrint(logging.INFO, "list-addresses called", logging.LogFormat{})

		store, err := openStore(cliConfig, false)
		if err != nil {
			return err
		}
		defer store.Close()

		addrs, err := store.Addresses()
		if err != nil {
			return err
		}
		infos := make([]*addressInfo, 0, len(addrs))
		for _, a := range addrs {
			infos = append(infos, &addressInfo{
				Address:   a.Address,
				WatchOnly: !a.HasPrivKey(),
				XRandom:   a.IsXRandom,
				Trashed:   a.IsTrashed,
				Synced:    a.IsSynced,
				SortTime:  a.SortTime.UTC().Format(time.RFC3339),
			})
		}
		printJSON(infos)
		return nil
	},
}

var listHDSeedsCmd = &cobra.Command{
	Use:   "list-hd-seeds",
	Short: "Lists the HD seeds of the secret store.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.VPrint(logging.INFO, "list-hd-seeds called", logging.LogFormat{})

		store, err := openStore(cliConfig, false)
		if err != nil {
			return err
		}
		defer store.Close()

		ids, err := store.HDSeedIDs()
		if err != nil {
			return err
		}
		infos := make([]*hdSeedInfo, 0, len(ids))
		for _, id := range ids {
			seed, err := store.HDSeed(id)
			if err != nil {
				return err
			}
			if seed == nil {
				continue
			}
			infos = append(infos, &hdSeedInfo{
				ID:           seed.ID,
				FirstAddress: seed.FirstAddress,
				XRandom:      seed.IsXRandom,
				Recovered:    seed.IsRecovered(),
				HasHDSeed:    seed.EncryptedHDSeed != "",
			})
		}
		printJSON(infos)
		return nil
	},
}

var hdmSeedID int

var hdmStatusCmd = &cobra.Command{
	Use:   "hdm-status <hd_seed_id>",
	Short: "Shows the HDM provisioning state of an HD seed.",
	Long: "Shows the HDM provisioning state of an HD seed.\n" +
		"\nArguments:\n" +
		"  <hd_seed_id>    id of the HD seed, see list-hd-seeds\n",
	Args: func(cmd *cobra.Command, args []string) (err error) {
		if err = cobra.ExactArgs(1)(cmd, args); err != nil {
			logging.VPrint(logging.ERROR, LogMsgIncorrectArgsNumber, logging.LogFormat{"actual": len(args)})
			return err
		}
		hdmSeedID, err = strconv.Atoi(args[0])
		if err != nil || hdmSeedID <= 0 {
			return ErrInvalidArgument
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.VPrint(logging.INFO, "hdm-status called", logging.LogFormat{"hd_seed_id": hdmSeedID})

		store, err := openStore(cliConfig, false)
		if err != nil {
			return err
		}
		defer store.Close()

		status := &hdmStatus{HDSeedID: hdmSeedID}
		if status.FirstAddress, _, err = store.HDMFirstAddress(hdmSeedID); err != nil {
			return err
		}
		if status.MaxIndex, err = store.MaxHDMAddressPubIndex(hdmSeedID); err != nil {
			return err
		}
		if status.UncompletedPubs, err = store.UncompletedHDMAddressCount(hdmSeedID); err != nil {
			return err
		}
		inUse, err := store.HDMAddressesInUse(hdmSeedID)
		if err != nil {
			return err
		}
		status.InUse = make([]*hdmAddressInfo, 0, len(inUse))
		for _, a := range inUse {
			status.InUse = append(status.InUse, &hdmAddressInfo{
				Index:   a.Index,
				Address: a.Address,
				Synced:  a.IsSynced,
			})
		}
		printJSON(status)
		return nil
	},
}
