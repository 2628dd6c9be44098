package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"net/url"
	"strings"
	"time"
)

type IMailService interface {
	// SendNotification sends a transactional mail with an optional
	// call-to-action link.
	SendNotification(to, subject, body, ctaText, ctaURL string) error
	SendPasswordResetMail(to, token string) error
}

type SMTPConfig struct {
	Host     string
	Port     int // 587 for STARTTLS, 465 for SMTPS
	Username string
	Password string
	From     string
	FromName string
	UseSSL   bool

	AppName    string
	AppBaseURL string // reset links point here
}

type smtpMailService struct {
	cfg     SMTPConfig
	htmlTpl *template.Template
	textTpl *template.Template
}

func NewSMTPMailService(cfg SMTPConfig) (IMailService, error) {
	return &smtpMailService{
		cfg:     cfg,
		htmlTpl: template.Must(template.New("html").Parse(mailHTMLTemplate)),
		textTpl: template.Must(template.New("text").Parse(mailTextTemplate)),
	}, nil
}

type mailData struct {
	Title     string
	Intro     string
	ButtonURL string
	ButtonTxt string
	AppName   string
	Year      int
}

const mailHTMLTemplate = `<!doctype html>
<html>
<head><meta charset="UTF-8"><title>{{.Title}}</title></head>
<body style="margin:0;padding:24px;background:#f5f7fa;font-family:Helvetica,Arial,sans-serif;color:#1f2937">
  <div style="max-width:560px;margin:0 auto;background:#ffffff;border-radius:8px;padding:32px;border:1px solid #e5e7eb">
    <div style="font-weight:700;font-size:18px;color:#2563eb;margin-bottom:20px">{{.AppName}}</div>
    <h1 style="font-size:22px;margin:0 0 12px">{{.Title}}</h1>
    <p style="line-height:1.6;margin:0 0 20px">{{.Intro}}</p>
    {{if .ButtonURL}}
    <p style="margin:28px 0"><a href="{{.ButtonURL}}" style="background:#2563eb;color:#ffffff;text-decoration:none;padding:12px 24px;border-radius:6px;font-weight:600">{{.ButtonTxt}}</a></p>
    <p style="font-size:12px;color:#6b7280">If the button does not work, open this link: <a href="{{.ButtonURL}}">{{.ButtonURL}}</a></p>
    {{end}}
    <p style="font-size:12px;color:#9ca3af;margin-top:32px">&copy; {{.Year}} {{.AppName}}</p>
  </div>
</body>
</html>`

const mailTextTemplate = `{{.Title}}

{{.Intro}}

{{if .ButtonURL}}Open this link:
{{.ButtonURL}}
{{end}}
{{.AppName}} (c) {{.Year}}
`

func (s *smtpMailService) SendNotification(to, subject, body, ctaText, ctaURL string) error {
	html, text, err := s.render(mailData{
		Title:     subject,
		Intro:     body,
		ButtonURL: ctaURL,
		ButtonTxt: ctaText,
		AppName:   s.cfg.AppName,
		Year:      time.Now().Year(),
	})
	if err != nil {
		return err
	}
	return s.send(to, subject, html, text)
}

func (s *smtpMailService) SendPasswordResetMail(to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s",
		strings.TrimRight(s.cfg.AppBaseURL, "/"), url.QueryEscape(token))
	subject := "Reset your password"

	html, text, err := s.render(mailData{
		Title:     subject,
		Intro:     "We received a request to reset your password. If you did not request this, ignore this email.",
		ButtonURL: link,
		ButtonTxt: "Reset Password",
		AppName:   s.cfg.AppName,
		Year:      time.Now().Year(),
	})
	if err != nil {
		return err
	}
	return s.send(to, subject, html, text)
}

func (s *smtpMailService) render(data mailData) (html string, text string, err error) {
	var hb, tb bytes.Buffer
	if err = s.htmlTpl.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err = s.textTpl.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

func (s *smtpMailService) send(to, subject, htmlBody, textBody string) error {
	boundary := fmt.Sprintf("alt_%d", time.Now().UnixNano())

	var msg bytes.Buffer
	write := func(format string, a ...any) { fmt.Fprintf(&msg, format, a...) }
	write("From: %s\r\n", s.fromHeader())
	write("To: %s\r\n", to)
	write("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject))
	write("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	write("MIME-Version: 1.0\r\n")
	write("Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
	write("--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, textBody)
	write("--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, htmlBody)
	write("--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	tlsCfg := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}

	var c *smtp.Client
	if s.cfg.UseSSL {
		conn, err := tls.Dial("tcp", addr, tlsCfg)
		if err != nil {
			return err
		}
		c, err = smtp.NewClient(conn, s.cfg.Host)
		if err != nil {
			conn.Close()
			return err
		}
	} else {
		dialer := &net.Dialer{Timeout: 10 * time.Second}
		conn, err := dialer.Dial("tcp", addr)
		if err != nil {
			return err
		}
		c, err = smtp.NewClient(conn, s.cfg.Host)
		if err != nil {
			conn.Close()
			return err
		}
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err = c.StartTLS(tlsCfg); err != nil {
				c.Close()
				return err
			}
		}
	}
	defer c.Quit()

	if err := c.Auth(auth); err != nil {
		return err
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg.Bytes()); err != nil {
		return err
	}
	return w.Close()
}

func (s *smtpMailService) fromHeader() string {
	name := strings.TrimSpace(s.cfg.FromName)
	if name == "" {
		return s.cfg.From
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("UTF-8", name), s.cfg.From)
}
