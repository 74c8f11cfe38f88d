package apitest

import (
	"time"

	"github.com/shopspring/decimal"

	"oversee-cli/internal/model"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// Demo returns a small two-branch data set.
func Demo() Fixtures {
	shipped := day(2025, 3, 11)
	return Fixtures{
		Companies: []model.Company{
			{Name: "Lemarq Distribuidora", Branches: []model.Branch{{Code: "1", Name: "Matriz Mossoró"}, {Code: "2", Name: "Filial Natal"}}},
		},
		Inbound: map[string][]model.InboundInvoice{
			"1": {
				{Number: "1001", SupplierCode: "310", SupplierName: "Ração Forte Ltda", IssuedAt: day(2025, 3, 3), Amount: decimal.RequireFromString("15230.40"), BranchName: "Matriz Mossoró"},
				{Number: "2040", SupplierCode: "1001", SupplierName: "Parafusos São Jorge", IssuedAt: day(2025, 3, 5), Amount: decimal.RequireFromString("842.10"), BranchName: "Matriz Mossoró"},
				{Number: "3000", SupplierCode: "77", SupplierName: "Açúcar Cristal Nordeste", IssuedAt: day(2025, 3, 7), Amount: decimal.RequireFromString("9900"), BranchName: "Matriz Mossoró"},
			},
			"2": {
				{Number: "501", SupplierCode: "310", SupplierName: "Ração Forte Ltda", IssuedAt: day(2025, 3, 4), Amount: decimal.RequireFromString("4100.00"), BranchName: "Filial Natal"},
			},
		},
		Outbound: map[string][]model.OutboundInvoice{
			"1": {
				{Number: "88001", CustomerCode: "12", CustomerName: "Mercadinho Potiguar", IssuedAt: day(2025, 3, 10), ShippedAt: &shipped, Amount: decimal.RequireFromString("1299.90"), BranchName: "Matriz Mossoró"},
				{Number: "88002", CustomerCode: "45", CustomerName: "Agropecuária Oeste", IssuedAt: day(2025, 3, 12), Amount: decimal.RequireFromString("530.00"), BranchName: "Matriz Mossoró"},
			},
		},
		Requisitions: map[string][]model.Requisition{
			"1": {
				{Number: "7001", Date: day(2025, 3, 2), CostCenter: "Manutenção"},
				{Number: "7002", Date: day(2025, 3, 9), CostCenter: "Expedição"},
			},
		},
		InboundItems: map[string][]model.LineItem{
			DocKey("1", "1001"): {
				{ID: 1, Name: "Ração Bovina 40kg", Code: "001", Quantity: decimal.NewFromInt(50), Barcode: "7891000100103"},
				{ID: 2, Name: "Sal Mineral 25kg", Code: "002", Quantity: decimal.NewFromInt(20), Barcode: "7891000200209"},
				{ID: 3, Name: "Milho Triturado 30kg", Code: "003", Quantity: decimal.NewFromInt(12), Checked: true, CheckedQuantity: decimal.NewFromInt(12)},
			},
			DocKey("1", "2040"): {
				{ID: 10, Name: "Parafuso Sextavado 1/4", Code: "1100", Quantity: decimal.NewFromInt(500), Barcode: "7893000011001"},
				{ID: 11, Name: "Porca 1/4", Code: "1101", Quantity: decimal.NewFromInt(500)},
			},
		},
		OutboundItems: map[string][]model.LineItem{
			DocKey("1", "88001"): {
				{ID: 101, Name: "Ração Bovina 40kg", Code: "001", Quantity: decimal.NewFromInt(10), Barcode: "7891000100103"},
			},
		},
		RequisitionItems: map[string][]model.LineItem{
			DocKey("1", "7001"): {
				{ID: 201, Name: "Graxa Industrial 1kg", Code: "5001", Quantity: decimal.NewFromInt(4)},
				{ID: 202, Name: "Luva de Raspa", Code: "5002", Quantity: decimal.NewFromInt(6)},
			},
		},
	}
}
