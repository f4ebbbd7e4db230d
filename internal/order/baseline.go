package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type seedOrder struct {
	id       string
	number   int
	table    int
	lines    []Line
	total    int64
	paid     bool
	status   Status
	age      time.Duration
	customer string
	phone    string
	notes    string
}

func ln(productID, name string, qty int, price int64) Line {
	return Line{ProductID: productID, Name: name, Quantity: qty, UnitPrice: decimal.NewFromInt(price)}
}

var seedOrders = []seedOrder{
	{"order_old_001", 95, 16, []Line{ln("1", "Nasi Goreng Spesial", 1, 25000), ln("6", "Es Teh Manis", 1, 8000)}, 33000, false, StatusReceived, 90 * time.Minute, "Pak Joko", "081234567888", "Pesanan sudah lama menunggu"},
	{"order_old_002", 96, 17, []Line{ln("2", "Ayam Bakar Madu", 1, 35000)}, 35000, true, StatusPreparing, 50 * time.Minute, "Bu Siti", "081234567889", ""},
	{"order_old_003", 97, 18, []Line{ln("3", "Mie Ayam Bakso", 2, 20000), ln("8", "Es Jeruk", 2, 10000)}, 60000, false, StatusReceived, 35 * time.Minute, "Keluarga Rahman", "081234567887", "Mie ayam extra pedas"},
	{"order_001", 101, 5, []Line{ln("1", "Nasi Goreng Spesial", 2, 25000), ln("6", "Es Teh Manis", 2, 8000)}, 66000, false, StatusReceived, 5 * time.Minute, "Budi Santoso", "081234567890", "Nasi goreng tidak terlalu pedas"},
	{"order_002", 102, 3, []Line{ln("2", "Ayam Bakar Madu", 1, 35000), ln("7", "Jus Alpukat", 1, 15000), ln("11", "Keripik Singkong", 1, 12000)}, 62000, true, StatusPreparing, 15 * time.Minute, "Sari Dewi", "081234567891", ""},
	{"order_003", 103, 8, []Line{ln("3", "Mie Ayam Bakso", 1, 20000), ln("8", "Es Jeruk", 1, 10000)}, 30000, true, StatusCompleted, 25 * time.Minute, "Ahmad Rizki", "081234567892", ""},
	{"order_004", 104, 12, []Line{ln("4", "Gado-gado", 2, 18000), ln("9", "Kopi Hitam", 2, 12000), ln("12", "Pisang Goreng", 1, 10000)}, 70000, false, StatusReceived, 8 * time.Minute, "Maya Sari", "081234567893", "Gado-gado bumbu kacangnya banyak"},
	{"order_005", 105, 7, []Line{ln("5", "Soto Ayam", 1, 22000), ln("10", "Cappuccino", 1, 18000)}, 40000, true, StatusPreparing, 20 * time.Minute, "Dedi Kurniawan", "081234567894", ""},
	{"order_006", 106, 2, []Line{ln("1", "Nasi Goreng Spesial", 1, 25000), ln("2", "Ayam Bakar Madu", 1, 35000), ln("6", "Es Teh Manis", 2, 8000), ln("14", "Es Krim Vanilla", 2, 15000)}, 106000, true, StatusCompleted, 45 * time.Minute, "Rina Wati", "081234567895", ""},
	{"order_007", 107, 15, []Line{ln("3", "Mie Ayam Bakso", 3, 20000), ln("7", "Jus Alpukat", 2, 15000), ln("13", "Tahu Isi", 2, 8000)}, 106000, false, StatusReceived, 3 * time.Minute, "Keluarga Wijaya", "081234567896", "Pesanan untuk 3 orang, mie ayam level pedas sedang"},
	{"order_008", 108, 6, []Line{ln("4", "Gado-gado", 1, 18000), ln("8", "Es Jeruk", 1, 10000), ln("15", "Puding Coklat", 1, 12000)}, 40000, true, StatusPreparing, 12 * time.Minute, "Lisa Permata", "081234567897", ""},
	{"order_009", 109, 10, []Line{ln("5", "Soto Ayam", 2, 22000), ln("9", "Kopi Hitam", 1, 12000), ln("11", "Keripik Singkong", 1, 12000)}, 68000, true, StatusCompleted, 70 * time.Minute, "Pak Harto", "081234567898", ""},
	{"order_010", 110, 4, []Line{ln("2", "Ayam Bakar Madu", 1, 35000), ln("10", "Cappuccino", 1, 18000), ln("14", "Es Krim Vanilla", 1, 15000)}, 68000, false, StatusReceived, 1 * time.Minute, "Indra Gunawan", "081234567899", "Ayam bakar medium well"},
	{"order_011", 111, 9, []Line{ln("1", "Nasi Goreng Spesial", 1, 25000), ln("6", "Es Teh Manis", 1, 8000)}, 33000, true, StatusCompleted, 150 * time.Minute, "Tono Sukirman", "081234567800", ""},
	{"order_012", 112, 11, []Line{ln("3", "Mie Ayam Bakso", 2, 20000), ln("7", "Jus Alpukat", 1, 15000), ln("12", "Pisang Goreng", 2, 10000)}, 75000, true, StatusCompleted, 195 * time.Minute, "Keluarga Santoso", "081234567801", ""},
	{"order_013", 113, 1, []Line{ln("5", "Soto Ayam", 1, 22000), ln("9", "Kopi Hitam", 1, 12000)}, 34000, true, StatusCompleted, 240 * time.Minute, "Wati Suharto", "081234567802", ""},
	{"order_014", 114, 13, []Line{ln("4", "Gado-gado", 1, 18000), ln("8", "Es Jeruk", 2, 10000), ln("13", "Tahu Isi", 3, 8000)}, 62000, true, StatusCompleted, 320 * time.Minute, "Grup Mahasiswa", "081234567803", ""},
	{"order_015", 115, 14, []Line{ln("2", "Ayam Bakar Madu", 2, 35000), ln("10", "Cappuccino", 2, 18000), ln("15", "Puding Coklat", 2, 12000)}, 130000, true, StatusCompleted, 405 * time.Minute, "Pasangan Muda", "081234567804", ""},
}

// Baseline returns the demo order set with timestamps relative to now.
// Totals are the stored snapshot amounts and are not recomputed.
func Baseline(now time.Time) []Order {
	out := make([]Order, len(seedOrders))
	for i, s := range seedOrders {
		pay := PaymentUnpaid
		if s.paid {
			pay = PaymentPaid
		}
		out[i] = Order{
			ID:            s.id,
			OrderNumber:   s.number,
			TableNumber:   s.table,
			Lines:         append([]Line(nil), s.lines...),
			TotalAmount:   decimal.NewFromInt(s.total),
			PaymentStatus: pay,
			OrderStatus:   s.status,
			CreatedAt:     now.Add(-s.age),
			CustomerName:  s.customer,
			CustomerPhone: s.phone,
			Notes:         s.notes,
		}
	}
	return out
}
