package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/config"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/connect"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

// mailKind: 每种邮件的模板和主题
type mailKind struct {
	template string
	subject  string
	data     func() any
}

var mailKinds = map[string]mailKind{
	domain.MailTypeCreateUser: {
		template: "./templates/new_account_email.html",
		subject:  "ECNC 组队系统 - 账户信息",
		data:     func() any { return &domain.CreateUserMailData{} },
	},
	domain.MailTypeTeamingComplete: {
		template: "./templates/teaming_complete_email.html",
		subject:  "ECNC 组队系统 - 分组任务结束",
		data:     func() any { return &domain.TeamingCompleteMailData{} },
	},
}

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", "error", err)
		return
	}

	/**********************************************
	 * 解析邮件模板，启动时就发现模板错误
	 **********************************************/
	templates := make(map[string]*template.Template, len(mailKinds))
	for name, kind := range mailKinds {
		tmpl, err := template.ParseFiles(kind.template)
		if err != nil {
			logger.Error("无法解析邮件模板", "type", name, "error", err)
			return
		}
		templates[name] = tmpl
	}

	/**********************************************
	 * 创建邮件客户端
	 **********************************************/
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		logger.Error("无法创建邮件客户端", "error", err)
		return
	}
	defer client.Close()

	// 验证邮件客户端是否连接成功
	clientDialCtx, cancelDial := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancelDial()
	if err := client.DialWithContext(clientDialCtx); err != nil {
		logger.Error("无法连接到邮件服务器", "error", err)
		return
	}

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, ch, err := connect.RabbitMQ(cfg, domain.EmailQueue)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", "error", err)
		return
	}
	defer conn.Close()
	defer ch.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	msgs, err := ch.Consume(
		domain.EmailQueue, // 队列
		"",                // 消费者标识，由 RabbitMQ 自动分配
		false,             // 手动确认
		false,             // 是否独占队列
		false,             // RabbitMQ 不支持 noLocal，必须为 false
		false,             // 是否不等待
		nil,               // 额外参数
	)
	if err != nil {
		logger.Error("无法消费消息", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Error("消息通道已关闭")
					return
				}

				m, err := buildMail(cfg.Email.SMTP.Username, templates, msg.Body)
				if err != nil {
					logger.Error("无法构建邮件", "error", err)
					_ = msg.Nack(false, false)
					continue
				}

				if err := client.DialAndSendWithContext(ctx, m); err != nil {
					logger.Error("邮件发送失败", "error", err)
					_ = msg.Nack(false, true) // 将消息重新入队
					continue
				}

				_ = msg.Ack(false)
			}
		}
	}()

	logger.Info("等待消息...（按 CTRL+C 退出）")
	<-sigChan

	slog.Info("正在关闭 mail worker...")
	cancel()
	wg.Wait()
	slog.Info("mail worker 已成功关闭")
}

// buildMail 根据消息的类型选择模板，再把数据解码成对应的结构体渲染正文
func buildMail(from string, templates map[string]*template.Template, body []byte) (*mail.Msg, error) {
	var envelope struct {
		Type string          `json:"type"`
		To   string          `json:"to"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("邮件信息反序列化失败: %w", err)
	}

	kind, ok := mailKinds[envelope.Type]
	if !ok {
		return nil, fmt.Errorf("不支持的邮件类型 %s", envelope.Type)
	}
	data := kind.data()
	if err := json.Unmarshal(envelope.Data, data); err != nil {
		return nil, fmt.Errorf("邮件数据反序列化失败: %w", err)
	}

	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := m.To(envelope.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}
	if err := m.SetBodyHTMLTemplate(templates[envelope.Type], data); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}
	m.Subject(kind.subject)

	return m, nil
}
