package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string
	}
	Database struct {
		DSN string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	JWT struct {
		Secret string
	}
	Game struct {
		TurnTimeoutSec     int
		ShowdownTimeoutSec int
		InterHandDelaySec  int
		SmallBlind         int64
		BigBlind           int64
		DefaultBuyIn       int64
	}
}

var C Config

func Load() {
	viper.SetConfigFile("config/config.yaml")
	setDefaults()
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Failed to read config: %v", err)
	}
	if err := viper.Unmarshal(&C); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}
}

func setDefaults() {
	viper.SetDefault("game.turntimeoutsec", 30)
	viper.SetDefault("game.showdowntimeoutsec", 10)
	viper.SetDefault("game.interhanddelaysec", 5)
	viper.SetDefault("game.smallblind", 5)
	viper.SetDefault("game.bigblind", 10)
	viper.SetDefault("game.defaultbuyin", 1000)
}
