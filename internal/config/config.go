package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"管理员"`
		Email    string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"336"` // 小时，14 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD,required"`
		} `envPrefix:"USER_"`
		RosterFile string `env:"ROSTER_FILE" envDefault:"./internal/seed/data/roster.csv"`
	} `envPrefix:"SEED_"`
	Email struct {
		UserDomain string `env:"USER_DOMAIN,required"`
		SMTP       struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"` // 秒
	} `envPrefix:"REDIS_"`
	NewUser struct {
		PasswordLength int `env:"PASSWORD_LENGTH" envDefault:"12"`
	} `envPrefix:"NEW_USER_"`
	// 提交分组任务时没有指定的参数使用这里的默认值
	Teaming struct {
		PopulationSize      int     `env:"POPULATION_SIZE" envDefault:"30000"`
		TournamentSize      int     `env:"TOURNAMENT_SIZE" envDefault:"60"`
		NumElites           int     `env:"NUM_ELITES" envDefault:"3"`
		RandomInjection     int     `env:"RANDOM_INJECTION" envDefault:"10"`
		TopGenomeLikelihood float64 `env:"TOP_GENOME_LIKELIHOOD" envDefault:"0.33"`
		MutationLikelihood  float64 `env:"MUTATION_LIKELIHOOD" envDefault:"0.5"`
		MinGenerations      int     `env:"MIN_GENERATIONS" envDefault:"40"`
		MaxGenerations      int     `env:"MAX_GENERATIONS" envDefault:"500"`
		StabilityWindow     int     `env:"STABILITY_WINDOW" envDefault:"25"`
		StabilityThreshold  float64 `env:"STABILITY_THRESHOLD" envDefault:"0.01"`
		Workers             int     `env:"WORKERS" envDefault:"0"` // 0 表示使用全部 CPU
		AncestorGenerations int     `env:"ANCESTOR_GENERATIONS" envDefault:"3"`
	} `envPrefix:"TEAMING_"`
	Worker struct {
		ProgressExpiration int `env:"PROGRESS_EXPIRATION" envDefault:"86400"` // 秒
		CancelPollInterval int `env:"CANCEL_POLL_INTERVAL" envDefault:"2"`    // 秒
		ProgressBuffer     int `env:"PROGRESS_BUFFER" envDefault:"16"`
		Prefetch           int `env:"PREFETCH" envDefault:"1"`
	} `envPrefix:"WORKER_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok && len(aggErr.Errors) > 0 {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}

// TeamingParameters 返回以配置为默认值的遗传算法参数
func (c *Config) TeamingParameters() teaming.Parameters {
	return teaming.Parameters{
		PopulationSize:      c.Teaming.PopulationSize,
		TournamentSize:      c.Teaming.TournamentSize,
		NumElites:           c.Teaming.NumElites,
		RandomInjection:     c.Teaming.RandomInjection,
		TopGenomeLikelihood: c.Teaming.TopGenomeLikelihood,
		MutationLikelihood:  c.Teaming.MutationLikelihood,
		MinGenerations:      c.Teaming.MinGenerations,
		MaxGenerations:      c.Teaming.MaxGenerations,
		StabilityWindow:     c.Teaming.StabilityWindow,
		StabilityThreshold:  c.Teaming.StabilityThreshold,
		Workers:             c.Teaming.Workers,
		AncestorGenerations: c.Teaming.AncestorGenerations,
	}
}
