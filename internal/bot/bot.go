package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"linkpool/internal/monitor"
)

// Init inicializa o bot do Telegram
func Init(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN não configurado. Verifique o arquivo .env")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		if err.Error() == "Unauthorized" {
			return nil, fmt.Errorf("token do Telegram inválido ou expirado. Verifique o TELEGRAM_BOT_TOKEN no arquivo .env")
		}
		return nil, fmt.Errorf("erro ao conectar com Telegram: %v", err)
	}

	bot.Debug = false
	log.Info().Str("user", bot.Self.UserName).Msg("Bot autorizado")
	return bot, nil
}

// Sender é a parte da API do Telegram usada pelo Reporter
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Reporter envia o resumo de cada ciclo para o chat do operador
type Reporter struct {
	api    Sender
	chatID int64
}

// NewReporter cria um Reporter para o chat informado
func NewReporter(api Sender, chatID int64) *Reporter {
	return &Reporter{api: api, chatID: chatID}
}

// Report envia o resumo do ciclo
func (r *Reporter) Report(ctx context.Context, report monitor.CycleReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(r.chatID, FormatReport(report))
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true
	if _, err := r.api.Send(msg); err != nil {
		// Tentar sem formatação se houver erro
		msg.ParseMode = ""
		if _, err := r.api.Send(msg); err != nil {
			return fmt.Errorf("erro ao enviar resumo: %w", err)
		}
	}
	return nil
}

// FormatReport monta o texto do resumo de um ciclo
func FormatReport(report monitor.CycleReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>Ciclo de verificação</b> (%s)\n\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "Links verificados: %d\n", len(report.Links))
	fmt.Fprintf(&b, "Atualizados: %d\n", report.Count(monitor.StatusUpdated))
	fmt.Fprintf(&b, "Falhas de scrape: %d\n", report.Count(monitor.StatusScrapeFailed))
	fmt.Fprintf(&b, "Falhas de gravação: %d\n", report.Count(monitor.StatusCommitFailed))
	fmt.Fprintf(&b, "Produtos atualizados: %d\n", report.ProductsUpdated())

	if drops := report.PriceDrops(); drops > 0 {
		fmt.Fprintf(&b, "\n📉 Quedas de preço: %d\n", drops)
		for _, l := range report.Links {
			if l.PriceDrops == 0 {
				continue
			}
			fmt.Fprintf(&b, "• %.2f — %s (%d alertas pendentes)\n", l.Price, html.EscapeString(l.URL), l.PendingAlerts)
		}
	}

	return b.String()
}
