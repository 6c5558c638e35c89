package service

import (
	"fmt"
	"strings"

	"portfolio_monitor/internal/models"
)

func f2(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func startText(chatID int64) string {
	return fmt.Sprintf("Привет! Я присылаю алерты по OKX-аккаунтам.\n\n"+
		"Чат: %d (пропиши в telegram.chat_id)\n"+
		"/status - балансы и позиции", chatID)
}

func formatAlert(name string, msg models.Message) string {
	return fmt.Sprintf("⚠️ [%s] %s", name, msg.Message)
}

func formatStatus(snaps []models.AccountSnapshot, name func(string) string) string {
	if len(snaps) == 0 {
		return "📊 Аккаунтов нет."
	}

	var b strings.Builder
	for _, s := range snaps {
		fmt.Fprintf(&b, "*%s*\n", name(s.AccountID))
		if s.Balance == nil {
			b.WriteString("  баланс ещё не получен\n\n")
			continue
		}
		fmt.Fprintf(&b,
			"  Equity: `%s`\n"+
				"  Доступно: `%s`  Заморожено: `%s`\n"+
				"  uPnL: `%s`\n",
			f2(s.Balance.TotalEquity),
			f2(s.Balance.Available), f2(s.Balance.Frozen),
			f2(s.Balance.UnrealizedPnl),
		)
		for _, p := range s.Positions {
			fmt.Fprintf(&b, "  [%s] %s `%.4f` @ `%.4f` PnL `%s`\n",
				p.InstID, strings.ToUpper(p.PosSide), p.Pos, p.AvgPx, f2(p.Upl))
		}
		if n := len(s.PendingOrders); n > 0 {
			fmt.Fprintf(&b, "  Ордеров в стакане: `%d`\n", n)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
