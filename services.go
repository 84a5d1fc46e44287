package giveapp

import "github.com/Chriskfigures777/give-app-sub003/core"

type Config = core.Config

type Stores = core.Stores

type Delivery = core.Delivery

type DeliveryResult = core.DeliveryResult

func DefaultConfig() Config {
	return core.DefaultConfig()
}
