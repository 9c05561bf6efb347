package main

import (
	"fmt"
	"strconv"
	"strings"

	"aurum/internal/inventory"

	"github.com/spf13/cobra"
)

// product command
var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage products",
}

var productCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new product",
	RunE: func(cmd *cobra.Command, args []string) error {
		sku, _ := cmd.Flags().GetString("sku")
		name, _ := cmd.Flags().GetString("name")
		price, _ := cmd.Flags().GetInt64("price")
		stock, _ := cmd.Flags().GetInt64("stock")

		a, err := newApp(cmd, "product.create")
		if err != nil {
			return err
		}
		defer a.Close()

		op := a.Operation()
		p, err := a.Inventory().CreateProduct(sku, name, price, stock, op.ActorID, op.ReqCtx)
		if err != nil {
			return err
		}

		fmt.Printf("Created product %s (%s, stock %d)\n", p.ID, p.SKU, p.Stock)
		return nil
	},
}

var productUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a product's name or price",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		price, _ := cmd.Flags().GetInt64("price")

		a, err := newApp(cmd, "product.update")
		if err != nil {
			return err
		}
		defer a.Close()

		op := a.Operation()
		p, err := a.Inventory().UpdateProduct(args[0], name, price, op.ActorID, op.ReqCtx)
		if err != nil {
			return err
		}

		fmt.Printf("Updated product %s\n", p.ID)
		return nil
	},
}

var productArchiveCmd = &cobra.Command{
	Use:   "archive ID",
	Short: "Soft-delete a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")

		a, err := newApp(cmd, "product.archive")
		if err != nil {
			return err
		}
		defer a.Close()

		op := a.Operation()
		if err := a.Inventory().ArchiveProduct(args[0], op.ActorID, reason, op.ReqCtx); err != nil {
			return err
		}

		fmt.Printf("Archived product %s\n", args[0])
		return nil
	},
}

var productRestoreCmd = &cobra.Command{
	Use:   "restore ID",
	Short: "Restore a soft-deleted product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "product.restore")
		if err != nil {
			return err
		}
		defer a.Close()

		op := a.Operation()
		if err := a.Inventory().RestoreProduct(args[0], op.ActorID, op.ReqCtx); err != nil {
			return err
		}

		fmt.Printf("Restored product %s\n", args[0])
		return nil
	},
}

var productPurgeCmd = &cobra.Command{
	Use:   "purge ID",
	Short: "Permanently delete an archived product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetString("confirm")
		reason, _ := cmd.Flags().GetString("reason")

		a, err := newApp(cmd, "product.purge")
		if err != nil {
			return err
		}
		defer a.Close()

		op := a.Operation()
		if err := a.Inventory().PurgeProduct(args[0], op.ActorID, confirm, reason, op.ReqCtx); err != nil {
			return err
		}

		fmt.Printf("Purged product %s\n", args[0])
		return nil
	},
}

// sale command
var saleCmd = &cobra.Command{
	Use:   "sale",
	Short: "Manage sales",
}

var saleRecordCmd = &cobra.Command{
	Use:   "record PRODUCT:QTY [PRODUCT:QTY...]",
	Short: "Record a sale and decrement stock",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := parseSaleLines(args)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "sale.record")
		if err != nil {
			return err
		}
		defer a.Close()

		op := a.Operation()
		sale, err := a.Inventory().RecordSale(lines, op.ActorID, op.ReqCtx)
		if err != nil {
			return err
		}

		fmt.Printf("Recorded sale %s (total %d cents)\n", sale.ID, sale.TotalCents)
		return nil
	},
}

var saleArchiveCmd = &cobra.Command{
	Use:   "archive ID",
	Short: "Soft-delete a sale, returning its items to stock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")

		a, err := newApp(cmd, "sale.archive")
		if err != nil {
			return err
		}
		defer a.Close()

		op := a.Operation()
		if err := a.Inventory().ArchiveSale(args[0], op.ActorID, reason, op.ReqCtx); err != nil {
			return err
		}

		fmt.Printf("Archived sale %s\n", args[0])
		return nil
	},
}

var saleRestoreCmd = &cobra.Command{
	Use:   "restore ID",
	Short: "Restore a soft-deleted sale, re-deducting its items from stock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "sale.restore")
		if err != nil {
			return err
		}
		defer a.Close()

		op := a.Operation()
		if err := a.Inventory().RestoreSale(args[0], op.ActorID, op.ReqCtx); err != nil {
			if inventory.IsInsufficientStock(err) {
				fmt.Println("Restore refused: insufficient stock.")
			}
			return err
		}

		fmt.Printf("Restored sale %s\n", args[0])
		return nil
	},
}

var salePurgeCmd = &cobra.Command{
	Use:   "purge ID",
	Short: "Permanently delete an archived sale",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetString("confirm")
		reason, _ := cmd.Flags().GetString("reason")

		a, err := newApp(cmd, "sale.purge")
		if err != nil {
			return err
		}
		defer a.Close()

		op := a.Operation()
		if err := a.Inventory().PurgeSale(args[0], op.ActorID, confirm, reason, op.ReqCtx); err != nil {
			return err
		}

		fmt.Printf("Purged sale %s\n", args[0])
		return nil
	},
}

// parseSaleLines parses PRODUCT:QTY arguments.
func parseSaleLines(args []string) ([]inventory.SaleLine, error) {
	lines := make([]inventory.SaleLine, 0, len(args))
	for _, arg := range args {
		id, qtyStr, ok := strings.Cut(arg, ":")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid sale line %q: expected PRODUCT:QTY", arg)
		}
		qty, err := strconv.ParseInt(qtyStr, 10, 64)
		if err != nil || qty <= 0 {
			return nil, fmt.Errorf("invalid quantity in %q: must be a positive integer", arg)
		}
		lines = append(lines, inventory.SaleLine{ProductID: id, Quantity: qty})
	}
	return lines, nil
}

func init() {
	productCreateCmd.Flags().String("sku", "", "Stock keeping unit")
	productCreateCmd.Flags().String("name", "", "Product name")
	productCreateCmd.Flags().Int64("price", 0, "Unit price in cents")
	productCreateCmd.Flags().Int64("stock", 0, "Opening stock")
	productUpdateCmd.Flags().String("name", "", "New product name")
	// -1 means "leave unchanged"; 0 is a legitimate price.
	productUpdateCmd.Flags().Int64("price", -1, "New unit price in cents")
	productArchiveCmd.Flags().String("reason", "", "Reason recorded in the audit trail")
	productPurgeCmd.Flags().String("confirm", "", fmt.Sprintf("Confirmation token; must be %q", inventory.PurgeToken))
	productPurgeCmd.Flags().String("reason", "", "Reason for the purge (at least 10 characters)")

	saleArchiveCmd.Flags().String("reason", "", "Reason recorded in the audit trail")
	salePurgeCmd.Flags().String("confirm", "", fmt.Sprintf("Confirmation token; must be %q", inventory.PurgeToken))
	salePurgeCmd.Flags().String("reason", "", "Reason for the purge (at least 10 characters)")

	productCmd.AddCommand(productCreateCmd)
	productCmd.AddCommand(productUpdateCmd)
	productCmd.AddCommand(productArchiveCmd)
	productCmd.AddCommand(productRestoreCmd)
	productCmd.AddCommand(productPurgeCmd)

	saleCmd.AddCommand(saleRecordCmd)
	saleCmd.AddCommand(saleArchiveCmd)
	saleCmd.AddCommand(saleRestoreCmd)
	saleCmd.AddCommand(salePurgeCmd)

	rootCmd.AddCommand(productCmd)
	rootCmd.AddCommand(saleCmd)
}
