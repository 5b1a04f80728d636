package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	dareme_protocol "dareme-cli/solana"
)

var idlRaw bool

var idlCmd = &cobra.Command{
	Use:   "idl",
	Short: "Show the program interface: instructions and their accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if idlRaw {
			_, err := os.Stdout.Write(dareme_protocol.RawIDL())
			return err
		}
		idl, err := dareme_protocol.LoadIDL()
		if err != nil {
			return err
		}
		fmt.Println(titleStyle.Render(fmt.Sprintf("📜 %s %s", idl.Name, idl.Version)))
		for _, ix := range idl.Instructions {
			fmt.Println(infoStyle.Render(ix.Name) + promptStyle.Render(fmt.Sprintf("  [%x]", ix.Discriminator)))
			for _, acct := range ix.Accounts {
				var flags []string
				if acct.IsMut {
					flags = append(flags, "mut")
				}
				if acct.IsSigner {
					flags = append(flags, "signer")
				}
				fmt.Printf("   - %-20s %s\n", acct.Name, strings.Join(flags, ","))
			}
		}
		return nil
	},
}

var idlErrorCmd = &cobra.Command{
	Use:   "error <code>",
	Short: "Explain a custom program error code (decimal or 0x hex)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid error code %q", args[0])
		}
		if pe := dareme_protocol.ErrorFromCode(uint32(code)); pe != nil {
			fmt.Printf("%d %s (%s): %s\n", code, pe.Code.Name(), pe.Code.Category(), pe.Code.Message())
			return nil
		}
		idl, err := dareme_protocol.LoadIDL()
		if err != nil {
			return err
		}
		entry, ok := idl.Error(int(code))
		if !ok {
			return fmt.Errorf("error code %d is not defined by the program", code)
		}
		fmt.Printf("%d %s: %s\n", entry.Code, entry.Name, entry.Msg)
		return nil
	},
}

func init() {
	idlCmd.Flags().BoolVar(&idlRaw, "json", false, "print the raw IDL document")
	idlCmd.AddCommand(idlErrorCmd)
	rootCmd.AddCommand(idlCmd)
}
