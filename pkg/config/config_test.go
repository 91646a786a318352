package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Set up test environment variables
	os.Setenv("botToken", "test-token")
	os.Setenv("PORT", "3001")
	os.Setenv("enviroment", "test")
	defer func() {
		os.Unsetenv("botToken")
		os.Unsetenv("PORT")
		os.Unsetenv("enviroment")
	}()

	// Reset global config
	resetForTesting()

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if config.BotToken != "test-token" {
		t.Errorf("BotToken = %v, want %v", config.BotToken, "test-token")
	}

	if config.Port != "3001" {
		t.Errorf("Port = %v, want %v", config.Port, "3001")
	}

	if config.Environment != "test" {
		t.Errorf("Environment = %v, want %v", config.Environment, "test")
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_VAR", "test-value")
	defer os.Unsetenv("TEST_VAR")

	if got := getEnv("TEST_VAR", "default"); got != "test-value" {
		t.Errorf("getEnv() = %v, want %v", got, "test-value")
	}

	if got := getEnv("NON_EXISTENT_VAR", "default"); got != "default" {
		t.Errorf("getEnv() = %v, want %v", got, "default")
	}
}

func TestIsProd(t *testing.T) {
	resetForTesting()
	os.Setenv("enviroment", "prod")
	config, _ := Load()

	if !config.IsProd() {
		t.Error("IsProd() should return true when environment is 'prod'")
	}

	resetForTesting()
	os.Setenv("enviroment", "dev")
	config, _ = Load()

	if config.IsProd() {
		t.Error("IsProd() should return false when environment is not 'prod'")
	}

	os.Unsetenv("enviroment")
}

func TestGet(t *testing.T) {
	resetForTesting()

	// Get should create a new config if none exists
	config := Get()
	if config == nil {
		t.Fatal("Get() returned nil")
	}

	// Get should return the same config on subsequent calls
	config2 := Get()
	if config != config2 {
		t.Error("Get() should return the same config on subsequent calls")
	}
}

func TestDefaultValues(t *testing.T) {
	// Clear all environment variables
	os.Unsetenv("botToken")
	os.Unsetenv("devGuildId")
	os.Unsetenv("mongodbUrl")
	os.Unsetenv("dbName")
	os.Unsetenv("MQTT_Host")
	os.Unsetenv("MQTT_Port")
	os.Unsetenv("PORT")
	os.Unsetenv("enviroment")

	resetForTesting()
	config, _ := Load()

	// Check default values
	if config.MongoDBURL != "mongodb://localhost:27017" {
		t.Errorf("MongoDBURL default = %v, want %v", config.MongoDBURL, "mongodb://localhost:27017")
	}

	if config.DBName != "PancyMusic" {
		t.Errorf("DBName default = %v, want %v", config.DBName, "PancyMusic")
	}

	if config.MQTTHost != "localhost" {
		t.Errorf("MQTTHost default = %v, want %v", config.MQTTHost, "localhost")
	}

	if config.MQTTPort != "1883" {
		t.Errorf("MQTTPort default = %v, want %v", config.MQTTPort, "1883")
	}

	if config.Port != "3000" {
		t.Errorf("Port default = %v, want %v", config.Port, "3000")
	}

	if config.Environment != "dev" {
		t.Errorf("Environment default = %v, want %v", config.Environment, "dev")
	}

	if config.LavalinkAddress() != "localhost:2333" {
		t.Errorf("LavalinkAddress() = %v, want %v", config.LavalinkAddress(), "localhost:2333")
	}

	if config.IdleInterval != 60*time.Second || config.IdleThreshold != 5 {
		t.Errorf("idle defaults = %v/%v, want %v/%v", config.IdleInterval, config.IdleThreshold, 60*time.Second, 5)
	}

	if config.DefaultVolume != 100 {
		t.Errorf("DefaultVolume default = %v, want %v", config.DefaultVolume, 100)
	}

	if config.SearchPrefix != "ytsearch" {
		t.Errorf("SearchPrefix default = %v, want %v", config.SearchPrefix, "ytsearch")
	}
}

func TestMusicValues(t *testing.T) {
	os.Setenv("idleInterval", "90s")
	os.Setenv("idleThreshold", "3")
	os.Setenv("defaultVolume", "250")
	os.Setenv("leaveWhenAlone", "true")
	os.Setenv("linksecure", "1")
	defer func() {
		os.Unsetenv("idleInterval")
		os.Unsetenv("idleThreshold")
		os.Unsetenv("defaultVolume")
		os.Unsetenv("leaveWhenAlone")
		os.Unsetenv("linksecure")
	}()

	resetForTesting()
	config, _ := Load()

	if config.IdleInterval != 90*time.Second {
		t.Errorf("IdleInterval = %v, want %v", config.IdleInterval, 90*time.Second)
	}
	if config.IdleThreshold != 3 {
		t.Errorf("IdleThreshold = %v, want %v", config.IdleThreshold, 3)
	}
	if config.DefaultVolume != 100 {
		t.Errorf("DefaultVolume = %v, want %v", config.DefaultVolume, 100)
	}
	if !config.LeaveWhenAlone {
		t.Error("LeaveWhenAlone = false, want true")
	}
	if !config.LinkSecure {
		t.Error("LinkSecure = false, want true")
	}
}

func TestTypedGetters(t *testing.T) {
	os.Setenv("TEST_INT", "nope")
	os.Setenv("TEST_BOOL", "maybe")
	os.Setenv("TEST_DURATION", "-5s")
	defer func() {
		os.Unsetenv("TEST_INT")
		os.Unsetenv("TEST_BOOL")
		os.Unsetenv("TEST_DURATION")
	}()

	if got := getEnvInt("TEST_INT", 7); got != 7 {
		t.Errorf("getEnvInt() = %v, want %v", got, 7)
	}
	if got := getEnvBool("TEST_BOOL", true); !got {
		t.Errorf("getEnvBool() = %v, want %v", got, true)
	}
	if got := getEnvDuration("TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("getEnvDuration() = %v, want %v", got, time.Second)
	}
}

func TestDevUsers(t *testing.T) {
	t.Setenv("devUsers", " 111, ,222 ")
	resetForTesting()
	defer resetForTesting()

	c := Get()
	if len(c.DevUserIDs) != 2 {
		t.Fatalf("len(DevUserIDs) = %d, want 2", len(c.DevUserIDs))
	}
	if !c.IsDev("222") {
		t.Errorf("IsDev(222) = false, want true")
	}
	if c.IsDev("333") {
		t.Errorf("IsDev(333) = true, want false")
	}
}
