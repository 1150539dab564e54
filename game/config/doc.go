// Package config loads and caches level packs.
//
// A level pack is a JSON or YAML file in the pack directory describing a
// sequence of levels plus the rules and history size they are played with:
//
//	name: Classic
//	history_size: 512
//	rules:
//	  - {kind: flag, property: stop}
//	levels:
//	  - name: First Steps
//	    layout:
//	      - "#################################"
//	      - "#@  0   $                        #"
//	      ...
//
// Layout rows use one character per tile (see engine.KindForChar) and must
// be exactly 33 columns by 18 rows with one Baba and at least one flag.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	pack, err := manager.LoadPack("classic")
//	packs, err := manager.ListPacks()
//
// A file named default.json, default.yaml or default.yml replaces the
// built-in pack. Invalid files are skipped when listing and reported with
// ErrInvalidPack when loaded directly.
package config
