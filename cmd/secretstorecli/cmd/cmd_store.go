package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"

	"massnet.org/mass-secretstore/logging"
	"massnet.org/mass-secretstore/secretstore"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates an empty secret store database.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.VPrint(logging.INFO, "create called", logging.LogFormat{"path": cliConfig.DbPath()})

		store, err := openStore(cliConfig, true)
		if err != nil {
			return err
		}
		defer store.Close()

		jww.FEEDBACK.Println("created", cliConfig.DbPath())
		return nil
	},
}

var checkPasswordCmd = &cobra.Command{
	Use:   "check-password",
	Short: "Checks the password of the secret store.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.VPrint(logging.INFO, "check-password called", logging.LogFormat{})

		store, err := openStore(cliConfig, false)
		if err != nil {
			return err
		}
		defer store.Close()

		pass, err := passwordReader("Password: ")
		if err != nil {
			return err
		}
		ok, err := store.CheckPassword(pass)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWrongPassword
		}
		jww.FEEDBACK.Println("password ok")
		return nil
	},
}

var changePasswordCmd = &cobra.Command{
	Use:   "change-password",
	Short: "Re-encrypts every secret of the store with a new password.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.VPrint(logging.INFO, "change-password called", logging.LogFormat{})

		store, err := openStore(cliConfig, false)
		if err != nil {
			return err
		}
		defer store.Close()

		oldPass, err := passwordReader("Old password: ")
		if err != nil {
			return err
		}
		newPass, err := readNewPassword()
		if err != nil {
			return err
		}

		err = store.ChangePassword(oldPass, newPass)
		if errors.Is(err, secretstore.ErrWrongPassword) {
			return ErrWrongPassword
		}
		if err != nil {
			return err
		}
		jww.FEEDBACK.Println("password changed")
		return nil
	},
}
