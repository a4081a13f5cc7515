package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (AUTOTAG_*)
// 3. Config file
// 4. Flag default
func GetConfigString(cmd *cobra.Command, flag string) string {
	if cmd.Flags().Changed(flag) {
		val, _ := cmd.Flags().GetString(flag)
		return val
	}
	if viper.IsSet(flag) {
		return viper.GetString(flag)
	}
	val, _ := cmd.Flags().GetString(flag)
	return val
}

// GetConfigInt retrieves an int config value with proper precedence
func GetConfigInt(cmd *cobra.Command, flag string) int {
	if cmd.Flags().Changed(flag) {
		val, _ := cmd.Flags().GetInt(flag)
		return val
	}
	if viper.IsSet(flag) {
		return viper.GetInt(flag)
	}
	val, _ := cmd.Flags().GetInt(flag)
	return val
}

// GetConfigBool retrieves a bool config value
func GetConfigBool(cmd *cobra.Command, flag string) bool {
	if cmd.Flags().Changed(flag) {
		val, _ := cmd.Flags().GetBool(flag)
		return val
	}
	if viper.IsSet(flag) {
		return viper.GetBool(flag)
	}
	val, _ := cmd.Flags().GetBool(flag)
	return val
}
