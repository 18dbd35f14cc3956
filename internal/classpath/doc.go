// Package classpath discovers the archives and directories needed to launch the
// toolkit directly on the JVM.
//
// The toolkit records every installed plugin in config/plugins.xml. Plugins that
// contribute Java code declare a dita.conductor.lib.import feature whose file
// attribute is relative to the plugin directory (the plugin's xml:base, itself
// relative to the descriptor). Resolve combines those entries with the jars under
// <home>/lib and the configuration directory.
package classpath
