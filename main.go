package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/asdine/storm/v3"
	"github.com/caarlos0/env/v6"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"gopkg.in/yaml.v2"

	"github.com/ridgebots/gosorter/comms"
	. "github.com/ridgebots/gosorter/onboard"
)

type EnvConfig struct {
	JWT_ISSUER string `env:"ROBOT_NAME" envDefault:"DEV"`
	DEBUG      bool   `env:"DEBUG" envDefault:"0"`
	SRCDIR     string `env:"SRCDIR" envDefault:"."`
	HTMLDIR    string `env:"HTMLDIR" envDefault:"./frontend/dist/"`
	DB         *storm.DB
	Conductor  *comms.Conductor
	Simulated  bool
}

var (
	ENV *EnvConfig
)

func init() {
	// Load main config
	ENV = new(EnvConfig)
	env.Parse(ENV)

	// setup database
	// make sure to init all of the structs
	dbFile, _ := filepath.Abs("./tmp/dev.db")
	dir := filepath.Dir(dbFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		os.Mkdir(dir, 0755)
	}

	db, err := openDb(dbFile)
	if err != nil {
		panic(err)
	}
	ENV.DB = db

	return
}

func main() {
	// process flags
	simulated := flag.Bool("sim", false, "Run the device in simulator mode")
	port := flag.String("port", "0.0.0.0:80", "Specify the ip:port to listen on")
	flag.Parse()

	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	defer ENV.DB.Close() // close database when finished

	// Setup the device properly so everything works as expected later
	filename, err := filepath.Abs(ENV.SRCDIR + "/bot_config.yaml")
	if err != nil {
		panic(err)
	}
	yamlFile, err := ioutil.ReadFile(filename)

	if err != nil {
		panic(fmt.Sprintf("Unable to read yaml file: %v", err))
	}

	var config SorterBotConfig
	err = yaml.Unmarshal(yamlFile, &config)
	if err != nil {
		panic(fmt.Sprintf("Unable to unmarshal yaml: %v", err))
	}

	var bot *SorterBot

	ENV.Simulated = *simulated
	if ENV.Simulated {
		println("Creating simulator")
		bot = NewSorterBotSimulator(config)
	} else {
		bot, err = NewSorterBot(config)
		if err != nil {
			panic(fmt.Sprintf("Unable to initialize sorter bot: %v", err))
		}
	}
	defer bot.Close()

	ENV.Conductor = new(comms.Conductor)
	ENV.Conductor.Device = bot

	go ENV.Conductor.UpdateClients()

	//---
	// Create a local shell
	//---
	{
		shell := ishell.New()
		shell.Println("Sorter bot development shell")
		shell.ShowPrompt(true)
		shell.AddCmd(&ishell.Cmd{
			Name: "createsuperuser",
			Help: "createsuperuser <email> <password>",
			Func: func(c *ishell.Context) {
				// disable the '>>>' for cleaner same line input.
				c.ShowPrompt(false)
				defer c.ShowPrompt(true) // yes, revert when done.

				// get email
				var email string
				if len(c.Args) >= 1 {
					email = c.Args[0]
				} else {
					c.Print("Email: ")
					email = c.ReadLine()
				}

				// get password
				var password string
				if len(c.Args) >= 2 {
					password = c.Args[1]
				} else {
					c.Print("Password: ")
					password = c.ReadPassword()
				}

				// create user
				user := &User{
					Email: email,
					Name:  email,
					Admin: true,
				}
				user.SetPassword([]byte(password))
				err := ENV.DB.Save(user)
				if err != nil {
					panic(err)
				}

				c.Println("Superuser created")
			},
		})

		// Add device specific commands
		shell.AddCmd(&ishell.Cmd{
			Name: "alliance",
			Help: "alliance <red|blue>",
			Func: func(c *ishell.Context) {
				if len(c.Args) != 1 {
					c.Err(fmt.Errorf("usage: alliance <red|blue>"))
					return
				}
				color, err := ParseAllianceColor(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				bot.SetAlliance(color)
				c.Printf("Alliance set to %s\n", color)
			},
		})

		shell.AddCmd(&ishell.Cmd{
			Name: "intake",
			Help: "intake <rpm>",
			Func: func(c *ishell.Context) {
				if len(c.Args) != 1 {
					c.Err(fmt.Errorf("usage: intake <rpm>"))
					return
				}
				rpm, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				c.Printf("Spinning intake at %d rpm\n", rpm)
				if err := bot.SetIntake(int16(rpm)); err != nil {
					c.Err(err)
				}
			},
		})

		taskActions := func([]string) []string { return []string{"start", "stop"} }

		shell.AddCmd(&ishell.Cmd{
			Name:      "sorter",
			Completer: taskActions,
			Help:      "sorter <start|stop>",
			Func: func(c *ishell.Context) {
				var err error
				switch strings.Join(c.Args, "") {
				case "start":
					err = bot.StartSorter()
				case "stop":
					err = bot.StopSorter()
				default:
					err = fmt.Errorf("usage: sorter <start|stop>")
				}
				if err != nil {
					c.Err(err)
				}
			},
		})

		shell.AddCmd(&ishell.Cmd{
			Name:      "stall",
			Completer: taskActions,
			Help:      "stall <start|stop>",
			Func: func(c *ishell.Context) {
				var err error
				switch strings.Join(c.Args, "") {
				case "start":
					err = bot.StartStallGuard()
				case "stop":
					err = bot.StopStallGuard()
				default:
					err = fmt.Errorf("usage: stall <start|stop>")
				}
				if err != nil {
					c.Err(err)
				}
			},
		})

		shell.AddCmd(&ishell.Cmd{
			Name: "state",
			Help: "Reads the current state of the device",
			Func: func(c *ishell.Context) {
				state := bot.GetState()
				c.Printf("%+v\n", state)
			},
		})

		// Start an instance of the shell so it can be controlled from the CLI
		go shell.Start()
	}

	//---
	// Build the API routes
	//---
	r.Route("/api", func(r chi.Router) {
		// login
		r.Post("/login", Login)

		r.Route("/", func(r chi.Router) {
			// Seek, verify and validate JWT tokens
			r.Use(ValidateJWT)

			r.Get("/refresh_token", JWTRefresh)
		})

	})

	// Add websocket routes
	r.Route("/ws", func(r chi.Router) {
		if ENV.DEBUG {
			fmt.Println("Running in debug mode. Authentication disabled.")
		} else {
			r.Use(ValidateJWT)
		}

		r.Get("/echo", EchoHandler)
		r.Get("/telemetry", TelemetryHandler)
	})

	// add static base routes
	FileServer(r, "/", http.Dir(ENV.HTMLDIR))

	fmt.Println("Listening on port", *port)
	if err := http.ListenAndServe(*port, r); err != nil {
		log.Fatal(err)
	}
}

func openDb(dbFile string) (db *storm.DB, err error) {
	db, err = storm.Open(dbFile)
	if err != nil {
		return
	}

	// call inits for each type
	if err := db.Init(&User{}); err != nil {
		return nil, err
	}

	return
}

// FileServer conveniently sets up a http.FileServer handler to serve
// static files from a http.FileSystem.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit URL parameters.")
	}

	fs := http.StripPrefix(path, http.FileServer(root))

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", 301).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.ServeHTTP(w, r)
	}))
}
